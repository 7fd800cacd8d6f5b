// internal/models/identity.go
package models

// ImageSide is the face of the national ID card an image shows.
type ImageSide string

const (
	SideFront ImageSide = "FRONT"
	SideBack  ImageSide = "BACK"
)

func (s ImageSide) Valid() bool {
	return s == SideFront || s == SideBack
}

// CapturedIdentityImage is a validated and normalised ID card image.
type CapturedIdentityImage struct {
	Side        ImageSide `json:"side"`
	Data        []byte    `json:"data"`
	ContentType string    `json:"contentType"`
	SizeBytes   int64     `json:"sizeBytes"`
	Width       int       `json:"width,omitempty"`
	Height      int       `json:"height,omitempty"`
}

// Present reports whether the image can be used for submission.
func (img *CapturedIdentityImage) Present() bool {
	return img != nil && img.SizeBytes > 0 && len(img.Data) > 0
}

// IdentityImages holds the front and back captures.
type IdentityImages struct {
	Front *CapturedIdentityImage `json:"front,omitempty"`
	Back  *CapturedIdentityImage `json:"back,omitempty"`
}

func (i IdentityImages) Complete() bool {
	return i.Front.Present() && i.Back.Present()
}
