package dashboard

import "context"

// ActivityContext names who changed a viewer's dashboard. OrgID is the
// landlord account the actor works under, not a renter.
type ActivityContext struct {
	ActorID string
	UserID  string
	OrgID   string
}

type activityContextKey struct{}

// ContextWithActivity stores meta on ctx. Empty fields keep the values an
// outer layer already stored, so auth middleware and commands compose.
func ContextWithActivity(ctx context.Context, meta ActivityContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, activityContextKey{}, activityContextFrom(ctx).overlay(meta))
}

func activityContextFrom(ctx context.Context) ActivityContext {
	if ctx == nil {
		return ActivityContext{}
	}
	if meta, ok := ctx.Value(activityContextKey{}).(ActivityContext); ok {
		return meta
	}
	return ActivityContext{}
}

func (a ActivityContext) overlay(next ActivityContext) ActivityContext {
	if next.ActorID != "" {
		a.ActorID = next.ActorID
	}
	if next.UserID != "" {
		a.UserID = next.UserID
	}
	if next.OrgID != "" {
		a.OrgID = next.OrgID
	}
	return a
}

// forViewer defaults the actor and subject to the viewer, who otherwise acts
// on their own layout.
func (a ActivityContext) forViewer(viewer ViewerContext) ActivityContext {
	if a.ActorID == "" {
		a.ActorID = viewer.UserID
	}
	if a.UserID == "" {
		a.UserID = viewer.UserID
	}
	return a
}
