package fetcher

// State is the position of a Session in the download protocol. States only
// move forward; any failure moves the session to Failed for good.
type State int

const (
	Initial State = iota
	SessionWarmed
	FormSubmitted
	RedirectCaptured
	ArtifactFetched
	Failed
)

func (s State) String() string {
	switch s {
	case Initial:
		return "initial"
	case SessionWarmed:
		return "session-warmed"
	case FormSubmitted:
		return "form-submitted"
	case RedirectCaptured:
		return "redirect-captured"
	case ArtifactFetched:
		return "artifact-fetched"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}
