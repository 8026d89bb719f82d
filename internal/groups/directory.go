// Package groups keeps the metadata of the groups the bot participates in, as announced by the
// gateway, in Valkey with a short in-process cache in front.
package groups

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/constants"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/service/cache"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/shortcache"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/pkg/errors"
)

// Participant actions of group-participants.update.
const (
	ActionAdd     = "add"
	ActionRemove  = "remove"
	ActionPromote = "promote"
	ActionDemote  = "demote"
)

// Directory: group metadata store
type Directory struct {
	cache  *cache.Service
	local  *shortcache.Cache[*domain.GroupMetadata]
	logger *slog.Logger
}

// NewDirectory creates a Directory.
func NewDirectory(cacheSvc *cache.Service, logger *slog.Logger) *Directory {
	return &Directory{
		cache:  cacheSvc,
		local:  shortcache.New[*domain.GroupMetadata](constants.CacheTTL.GroupMetadata),
		logger: logger,
	}
}

func groupKey(id string) string {
	return fmt.Sprintf(constants.StoreKeys.GroupDirectory, id)
}

// Upsert replaces the metadata of a group.
func (d *Directory) Upsert(ctx context.Context, meta domain.GroupMetadata) error {
	if meta.ID == "" {
		return errors.NewValidationError("group id is empty", "id")
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return errors.NewCacheError("marshal", groupKey(meta.ID), err)
	}
	if err := d.cache.SetString(ctx, groupKey(meta.ID), string(raw), 0); err != nil {
		return err
	}
	d.local.Set(meta.ID, &meta)
	return nil
}

// Get returns the metadata of a group or errors.ErrNotFound.
func (d *Directory) Get(ctx context.Context, id string) (*domain.GroupMetadata, error) {
	if meta, ok := d.local.Get(id); ok {
		return meta, nil
	}
	raw, found, err := d.cache.GetString(ctx, groupKey(id))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.ErrNotFound
	}
	var meta domain.GroupMetadata
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, errors.NewCacheError("unmarshal", groupKey(id), err)
	}
	d.local.Set(id, &meta)
	return &meta, nil
}

// Groups lists every known group sorted by id.
func (d *Directory) Groups(ctx context.Context) ([]domain.GroupMetadata, error) {
	keys, err := d.cache.Scan(ctx, fmt.Sprintf(constants.StoreKeys.GroupDirectory, "*"), 0)
	if err != nil {
		return nil, err
	}
	prefix := fmt.Sprintf(constants.StoreKeys.GroupDirectory, "")
	groups := make([]domain.GroupMetadata, 0, len(keys))
	for _, key := range keys {
		meta, err := d.Get(ctx, strings.TrimPrefix(key, prefix))
		if err != nil {
			d.logger.Warn("GROUP_READ_FAILED", slog.String("key", key), slog.Any("error", err))
			continue
		}
		groups = append(groups, *meta)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
	return groups, nil
}

// ApplySubject merges a groups.update entry. Unknown groups are created without participants.
func (d *Directory) ApplySubject(ctx context.Context, id, subject string) error {
	meta, err := d.Get(ctx, id)
	if errors.IsNotFound(err) {
		meta = &domain.GroupMetadata{ID: id}
	} else if err != nil {
		return err
	}
	updated := *meta
	if subject != "" {
		updated.Subject = subject
	}
	return d.Upsert(ctx, updated)
}

// ApplyParticipants applies a group-participants.update to the stored member list.
func (d *Directory) ApplyParticipants(ctx context.Context, update domain.ParticipantsUpdate) error {
	meta, err := d.Get(ctx, update.ID)
	if errors.IsNotFound(err) {
		meta = &domain.GroupMetadata{ID: update.ID}
	} else if err != nil {
		return err
	}

	updated := *meta
	updated.Participants = applyAction(meta.Participants, update.Action, update.Participants)
	return d.Upsert(ctx, updated)
}

func applyAction(current []domain.Participant, action string, ids []string) []domain.Participant {
	touched := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		touched[id] = struct{}{}
	}

	out := make([]domain.Participant, 0, len(current)+len(ids))
	for _, p := range current {
		_, hit := touched[p.ID]
		switch {
		case hit && action == ActionRemove:
			continue
		case hit && action == ActionPromote:
			p.Admin = "admin"
		case hit && action == ActionDemote:
			p.Admin = ""
		case hit && action == ActionAdd:
			delete(touched, p.ID)
		}
		out = append(out, p)
	}
	if action == ActionAdd {
		for _, id := range ids {
			if _, missing := touched[id]; missing {
				out = append(out, domain.Participant{ID: id})
				delete(touched, id)
			}
		}
	}
	return out
}

// Mentions returns the participant ids of a group; adminsOnly keeps administrators only.
func (d *Directory) Mentions(ctx context.Context, id string, adminsOnly bool) ([]string, error) {
	meta, err := d.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(meta.Participants))
	for _, p := range meta.Participants {
		if adminsOnly && !p.IsAdmin() {
			continue
		}
		ids = append(ids, p.ID)
	}
	return ids, nil
}
