package wspulse

import (
	"context"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
)

type (
	// DialParams are the parameters of one dial: where to connect and which
	// headers to present. Fetched per attempt so signed or expiring endpoint
	// URLs stay fresh across reconnects.
	DialParams struct {
		URL    url.URL
		Header http.Header
	}

	DialParamsGetter func(ctx context.Context) (DialParams, error)

	DialParamsRepo struct {
		logger Logger
		getter DialParamsGetter
	}
)

func (r DialParamsRepo) Get(ctx context.Context) (params DialParams, err error) {
	params, err = r.getter(ctx)
	if err != nil {
		r.logger.Errorf("cannot fetch dial params: %s", err)
	}
	return
}

func NewDialParamsRepo(logger Logger, getter DialParamsGetter) DialParamsRepo {
	return DialParamsRepo{getter: getter, logger: logger}
}

// NewStaticDialParamsRepo builds a repo that always dials the same address.
func NewStaticDialParamsRepo(logger Logger, address string) (DialParamsRepo, error) {
	u, err := url.Parse(address)
	if err != nil {
		return DialParamsRepo{}, errors.Wrapf(err, "invalid endpoint address %q", address)
	}

	params := DialParams{URL: *u, Header: http.Header{}}
	return NewDialParamsRepo(logger, func(context.Context) (DialParams, error) {
		return params, nil
	}), nil
}
