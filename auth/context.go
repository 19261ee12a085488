package auth

import "context"

type infoKey struct{}

// WithContext returns a copy of ctx carrying i. Use User to read it back.
func (i Info) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, infoKey{}, i)
}

// User returns the caller stored in ctx, or an anonymous Info.
func User(ctx context.Context) Info {
	info, _ := ctx.Value(infoKey{}).(Info)
	return info
}

// An Option sets one field of the Info built by Context.
type Option func(*Info)

// Context returns a copy of ctx carrying the caller described by opts.
func Context(ctx context.Context, opts ...Option) context.Context {
	var info Info
	for _, opt := range opts {
		opt(&info)
	}
	return info.WithContext(ctx)
}

// ID sets the caller's user ID, which marks the caller as logged in.
func ID(id string) Option {
	return func(info *Info) { info.ID = id }
}

// Admin grants or withholds admin rights.
func Admin(isAdmin bool) Option {
	return func(info *Info) { info.IsAdmin = isAdmin }
}
