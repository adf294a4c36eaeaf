package user

// Viewer is the signed-in identity a request acts as. Its user value may change
// over the life of a session, so callers read it at the moment they need it.
type Viewer interface {
	CurrentUser() User
}

// StaticViewer is a Viewer with a fixed user.
type StaticViewer User

// CurrentUser implements Viewer.
func (v StaticViewer) CurrentUser() User {
	return User(v)
}
