package persist

import (
	"fmt"

	"github.com/ambonmud/server/internal/model"
)

type ErrNameTaken struct {
	Name string
}

func (e ErrNameTaken) Error() string {
	return fmt.Sprintf("persist: name %q already registered", e.Name)
}

type ErrNotFound struct {
	PlayerId model.PlayerId
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("persist: player %d not found", int64(e.PlayerId))
}
