package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/codingrush01/murlidhar-mobiles/internal/access"
	"github.com/codingrush01/murlidhar-mobiles/internal/domain"
	"github.com/codingrush01/murlidhar-mobiles/internal/store"
	"github.com/codingrush01/murlidhar-mobiles/internal/xid"
)

func (s *Service) ListAuditLogs(ctx context.Context, shopID string, limit int) ([]domain.AuditLog, error) {
	if _, err := requireCapability(ctx, access.CapManageUsers); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 100
	}

	q := store.Query{
		OrderBy: &store.OrderBy{Field: "createdAt", Desc: true},
		Limit:   limit,
	}
	if shopID != "" {
		q.Filters = append(q.Filters, store.Where("shopId", store.OpEqual, shopID))
	}
	return listAll[domain.AuditLog](ctx, s.docs, domain.CollectionAuditLogs, q)
}

func (s *Service) logAudit(ctx context.Context, shopID string, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Identity{Email: "system", Role: "system"}
	}

	entry := domain.AuditLog{
		ShopID:     shopID,
		ActorEmail: actor.Email,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
		CreatedAt:  s.now(),
	}
	fields, err := store.Encode(entry)
	if err == nil {
		err = s.docs.Upsert(ctx, domain.CollectionAuditLogs, xid.New("audit"), fields, false)
	}
	if err != nil {
		s.log.Warn("failed to write audit log",
			zap.String("action", action),
			zap.String("entity", entityType+"/"+entityID),
			zap.Error(err),
		)
	}
}
