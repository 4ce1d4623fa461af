package client

import "context"

type PersonInfoRepository interface {
	Create(ctx context.Context, p *PersonInfo) error
	GetByID(ctx context.Context, id int64) (*PersonInfo, error)
	Update(ctx context.Context, p *PersonInfo) error
	UpdateStatus(ctx context.Context, id int64, status string) error
	List(ctx context.Context, f ListFilter) ([]*PersonInfo, int, error)
}
