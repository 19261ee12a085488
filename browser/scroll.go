package browser

import (
	"context"
	"time"
)

// scroller moves the page down and reports the document height afterwards.
type scroller interface {
	ScrollBy(ctx context.Context, pixels int) (height int64, err error)
}

// scrollUntilCaptured scrolls step by step until a value arrives on
// captured. After every step it waits up to delay for the value. It gives up
// when the document height stops changing, when maxScrolls steps have been
// made or when ctx is done. ok reports whether a value was received.
func scrollUntilCaptured[T any](ctx context.Context, s scroller, captured <-chan T, delay time.Duration, maxScrolls, pixels int) (v T, ok bool, err error) {
	lastHeight := int64(-1)
	for i := 0; i < maxScrolls; i++ {
		select {
		case v = <-captured:
			return v, true, nil
		default:
		}

		height, err := s.ScrollBy(ctx, pixels)
		if err != nil {
			return v, false, err
		}

		v, ok, err = waitFor(ctx, captured, delay)
		if ok || err != nil {
			return v, ok, err
		}

		// Nothing new was loaded: the listing is exhausted.
		if height == lastHeight {
			return v, false, nil
		}
		lastHeight = height
	}
	return v, false, nil
}

func waitFor[T any](ctx context.Context, ch <-chan T, d time.Duration) (v T, ok bool, err error) {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case v = <-ch:
		return v, true, nil
	case <-t.C:
		return v, false, nil
	case <-ctx.Done():
		return v, false, ctx.Err()
	}
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
