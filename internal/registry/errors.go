package registry

import (
	"fmt"

	"github.com/ambonmud/server/internal/ids"
	"github.com/ambonmud/server/internal/model"
)

type ErrNotFound struct {
	SessionId ids.SessionId
	MobId     model.MobId
	ItemId    model.ItemId
}

func (e ErrNotFound) Error() string {
	switch {
	case e.MobId != "":
		return fmt.Sprintf("mob %q not found", e.MobId)
	case e.ItemId != "":
		return fmt.Sprintf("item %q not found", e.ItemId)
	default:
		return fmt.Sprintf("session %d not found", uint64(e.SessionId))
	}
}

type ErrNameTaken struct {
	Name string
}

func (e ErrNameTaken) Error() string {
	return fmt.Sprintf("name %q is already taken", e.Name)
}
