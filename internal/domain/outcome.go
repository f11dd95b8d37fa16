package domain

import "encoding/base64"

// Status is the lifecycle position of one style's generation.
type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Image is an encoded image payload together with its declared media type.
type Image struct {
	MediaType string
	Data      []byte
}

// DataURL renders the image as data:<mediaType>;base64,<payload>.
func (i Image) DataURL() string {
	return "data:" + i.MediaType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Outcome is the pending or terminal state of a style. Image is set only for
// StatusDone and Reason only for StatusFailed.
type Outcome struct {
	Status Status
	Image  *Image
	Reason string
}

func Pending() Outcome {
	return Outcome{Status: StatusPending}
}

func Done(img Image) Outcome {
	return Outcome{Status: StatusDone, Image: &img}
}

func Failed(reason string) Outcome {
	return Outcome{Status: StatusFailed, Reason: reason}
}

// Terminal reports whether the outcome is Done or Failed.
func (o Outcome) Terminal() bool {
	return o.Status == StatusDone || o.Status == StatusFailed
}
