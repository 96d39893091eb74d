package org_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"omscore/internal/domain/campaigns"
	"omscore/internal/domain/filter"
	"omscore/internal/infrastructure/storage/postgres"
)

// CampaignRepo implements campaigns.Repository.
type CampaignRepo struct {
	postgres.Table[campaigns.Campaign]
}

// NewCampaignRepo creates a new campaign repository.
func NewCampaignRepo(txm *postgres.TxManager) *CampaignRepo {
	return &CampaignRepo{Table: postgres.NewTable[campaigns.Campaign](txm, "campaigns", "Campaign")}
}

func (r *CampaignRepo) listQuery(f filter.List, includeInactive bool) squirrel.SelectBuilder {
	q := postgres.Search(r.SelectAll(), f.Query, "name", "url", "description_short")
	if !includeInactive {
		q = q.Where(squirrel.Eq{"active": true})
	}
	return q
}

func (r *CampaignRepo) List(ctx context.Context, f filter.List, includeInactive bool) ([]campaigns.Campaign, int, error) {
	return r.SelectPage(ctx, r.listQuery(f, includeInactive), f)
}
