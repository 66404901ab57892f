package templates

type StatusKind string

const (
	StatusNone    StatusKind = ""
	StatusSuccess StatusKind = "success"
	StatusError   StatusKind = "error"
)

func (k StatusKind) class() string {
	return "upload-status--" + string(k)
}
