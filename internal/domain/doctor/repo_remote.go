package doctor

import (
	"context"
	"net/http"
	"net/url"

	"github.com/medibook/medibook/internal/platform/remote"
)

type RemoteRepository struct {
	client *remote.Client
}

func NewRemoteRepository(client *remote.Client) *RemoteRepository {
	return &RemoteRepository{client: client}
}

func (r *RemoteRepository) List(ctx context.Context) ([]*Doctor, error) {
	var list []*Doctor
	if err := r.client.Do(ctx, http.MethodGet, "/doctors", nil, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *RemoteRepository) Get(ctx context.Context, id string) (*Doctor, error) {
	var d Doctor
	if err := r.client.Do(ctx, http.MethodGet, "/doctors/"+url.PathEscape(id), nil, nil, &d); err != nil {
		if remote.IsStatus(err, http.StatusNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *RemoteRepository) Save(ctx context.Context, d *Doctor) error {
	return r.client.Do(ctx, http.MethodPut, "/doctors/"+url.PathEscape(d.ID), nil, d, nil)
}
