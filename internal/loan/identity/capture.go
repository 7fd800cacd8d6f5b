package identity

import (
	"context"
	"errors"
	"fmt"

	"gfn-loan-service/internal/common/logger"
	"gfn-loan-service/internal/models"
)

// GenericRetryMessage is shown when processing fails for a reason the user cannot fix directly.
const GenericRetryMessage = "We could not process this image. Please try again."

var (
	ErrCaptureComplete = errors.New("CAPTURE_ALREADY_COMPLETE")
	ErrWrongSide       = errors.New("CAPTURE_WRONG_SIDE")
	ErrEmptyImage      = errors.New("CAPTURE_EMPTY_IMAGE")
)

// Step is the capture progress: front, back, completed.
type Step string

const (
	StepFront     Step = "front"
	StepBack      Step = "back"
	StepCompleted Step = "completed"
)

// Capture is the value-typed capture state. Every method returns a new value.
type Capture struct {
	Step   Step                  `json:"step"`
	Images models.IdentityImages `json:"images"`
}

func NewCapture() Capture {
	return Capture{Step: StepFront}
}

// Expected is the side the next capture must show. Empty once completed.
func (c Capture) Expected() models.ImageSide {
	switch c.Step {
	case StepFront, "":
		return models.SideFront
	case StepBack:
		return models.SideBack
	default:
		return ""
	}
}

// Accept stores img if it is the expected side and non-empty, advancing the step.
func (c Capture) Accept(img models.CapturedIdentityImage) (Capture, error) {
	expected := c.Expected()
	if expected == "" {
		return c, ErrCaptureComplete
	}
	if img.Side != expected {
		return c, fmt.Errorf("%w: expected %s, got %s", ErrWrongSide, expected, img.Side)
	}
	if !img.Present() {
		return c, ErrEmptyImage
	}

	next := c
	stored := img
	switch expected {
	case models.SideFront:
		next.Images.Front = &stored
		next.Step = StepBack
	case models.SideBack:
		next.Images.Back = &stored
		next.Step = StepCompleted
	}
	return next, nil
}

// Clear discards both captures so the user can redo them.
func (c Capture) Clear() Capture {
	return NewCapture()
}

func (c Capture) Completed() bool {
	return c.Step == StepCompleted && c.Images.Complete()
}

// Outcome is returned by Orchestrator.Capture. Message is set whenever Accepted is false.
type Outcome struct {
	Capture  Capture `json:"capture"`
	Accepted bool    `json:"accepted"`
	Message  string  `json:"message,omitempty"`
}

// Orchestrator runs validate then process for each capture and never lets a processing
// failure escape as anything but a retry message.
type Orchestrator struct {
	processor ImageProcessor
	logger    logger.Logger
}

func NewOrchestrator(processor ImageProcessor, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		processor: processor,
		logger:    log.WithFields(map[string]interface{}{"component": "identity-capture"}),
	}
}

// Capture validates and normalises data as side, then advances c.
// A rejected or failed capture leaves c unchanged.
func (o *Orchestrator) Capture(ctx context.Context, c Capture, side models.ImageSide, data []byte) (out Outcome) {
	out = Outcome{Capture: c}

	expected := c.Expected()
	if expected == "" {
		out.Message = "Both sides of your ID have already been captured."
		return out
	}
	if side != expected {
		out.Message = fmt.Sprintf("Please capture the %s of your ID card first.", sideLabel(expected))
		return out
	}

	if v := o.processor.Validate(data); !v.Valid {
		out.Message = v.Message
		return out
	}

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Image processing panicked", map[string]interface{}{
				"side":  string(side),
				"panic": fmt.Sprint(r),
			})
			out = Outcome{Capture: c, Message: GenericRetryMessage}
		}
	}()

	img, err := o.processor.Process(ctx, side, data)
	if err != nil {
		o.logger.Warn("Image processing failed", map[string]interface{}{
			"side":  string(side),
			"error": err.Error(),
		})
		out.Message = GenericRetryMessage
		return out
	}

	next, err := c.Accept(img)
	if err != nil {
		out.Message = GenericRetryMessage
		return out
	}

	o.logger.Info("Identity image accepted", map[string]interface{}{
		"side":      string(side),
		"sizeBytes": img.SizeBytes,
		"nextStep":  string(next.Step),
	})
	return Outcome{Capture: next, Accepted: true}
}

func sideLabel(side models.ImageSide) string {
	if side == models.SideBack {
		return "back"
	}
	return "front"
}
