package playbook

import "context"

// The page-object contract. Queries return the page's current state on every
// call; commands are fire-and-forget, and their effects are only observed
// through later queries, usually inside WaitUntil.
//
// Implementations report a lost or released session as a *SessionError
// (see SessionFailure) so the driver can stop every scenario sharing it.

// TextSource exposes the visible text of a page region.
type TextSource interface {
	CurrentText(ctx context.Context) (string, error)
}

// MarkerSource exposes the diagnostic markers currently shown.
type MarkerSource interface {
	CurrentMarkers(ctx context.Context) (MarkerState, error)
}

// TabSource exposes the names of the open tabs, in display order.
type TabSource interface {
	OpenTabs(ctx context.Context) ([]string, error)
}

// VisibilitySource reports whether a named element is visible.
type VisibilitySource interface {
	Visible(ctx context.Context, target string) (bool, error)
}

// Typer enters text at the current focus.
type Typer interface {
	Type(ctx context.Context, text string) error
}

// KeyPresser sends special keys.
type KeyPresser interface {
	Press(ctx context.Context, keys ...Key) error
}

// Clicker clicks a named element.
type Clicker interface {
	Click(ctx context.Context, target string) error
}

// TabSelector activates an open tab.
type TabSelector interface {
	SelectTab(ctx context.Context, name string) error
}

// Session is an exclusively owned automation handle, such as a browser or a
// terminal server.
type Session interface {
	Close() error
}
