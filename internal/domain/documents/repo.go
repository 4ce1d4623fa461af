package documents

import "context"

type DocumentRepository interface {
	Create(ctx context.Context, d *Document) error
	GetByID(ctx context.Context, id int64) (*Document, error)
	Delete(ctx context.Context, id int64) error
	ListByClient(ctx context.Context, clientID int64, segmentIDs []int64) ([]*Document, error)
	ExistsByClientAndFileName(ctx context.Context, clientID int64, fileName string) (bool, error)
}
