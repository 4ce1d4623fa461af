package masterdata

import "context"

type MasterDataRepository interface {
	Create(ctx context.Context, md *MasterData) error
	GetByID(ctx context.Context, id int64) (*MasterData, error)
	Update(ctx context.Context, md *MasterData) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, segmentIDs []int64, limit, offset int) ([]*MasterData, int, error)

	// FindActiveTriple locates an active row matching the triple in the given
	// segment or globally. Returns nil when absent.
	FindActiveTriple(ctx context.Context, category, svcType, provider string, segmentID *int64) (*MasterData, error)

	// ListReferencingServices returns the client services whose triple resolves
	// to this catalog row. Feeds the update/delete conflict report.
	ListReferencingServices(ctx context.Context, id int64) ([]*ServiceRef, error)
}
