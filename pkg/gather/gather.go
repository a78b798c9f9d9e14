// Package gather runs batches of independent fetches and joins them.
//
// Two policies are offered and callers pick one explicitly:
// Tolerant keeps going when an item fails, FailFast (and Both) give up on the first failure.
package gather

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Result 单个条目的结果；Err 非空时 Value 为零值
type Result[R any] struct {
	Value R
	Err   error
}

// Tolerant 对每个条目并发执行 fn（limit<=0 不限并发），失败的条目降级为零值，不影响其他条目。
// 返回值与 items 一一对应。
func Tolerant[T, R any](ctx context.Context, items []T, limit int, fn func(context.Context, T) (R, error)) []Result[R] {
	out := make([]Result[R], len(items))
	if len(items) == 0 {
		return out
	}
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, item := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				out[i].Err = err
				return nil
			}
			v, err := fn(ctx, item)
			if err != nil {
				out[i].Err = err
				return nil
			}
			out[i].Value = v
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Values 丢掉错误，只取值（失败的条目是零值）
func Values[R any](rs []Result[R]) []R {
	out := make([]R, len(rs))
	for i, r := range rs {
		out[i] = r.Value
	}
	return out
}

// FailFast 并发执行，第一个错误取消其余任务并返回
func FailFast(ctx context.Context, fns ...func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, fn := range fns {
		g.Go(func() error { return fn(gctx) })
	}
	return g.Wait()
}

// Both 两个结果都需要时使用：任一失败整体失败
func Both[A, B any](ctx context.Context, fa func(context.Context) (A, error), fb func(context.Context) (B, error)) (A, B, error) {
	var (
		a A
		b B
	)
	err := FailFast(ctx,
		func(ctx context.Context) error {
			v, err := fa(ctx)
			if err != nil {
				return err
			}
			a = v
			return nil
		},
		func(ctx context.Context) error {
			v, err := fb(ctx)
			if err != nil {
				return err
			}
			b = v
			return nil
		},
	)
	if err != nil {
		var za A
		var zb B
		return za, zb, err
	}
	return a, b, nil
}
