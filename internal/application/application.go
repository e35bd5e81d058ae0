package application

import "context"

// UseCase is the common shape of application entry points.
type UseCase[C any, R any] interface {
	Execute(ctx context.Context, cmd C) (R, error)
}
