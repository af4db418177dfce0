package models

import (
	"errors"
	"time"
)

var ErrEmptyPrompt = errors.New("prompt cannot be empty")

type ProviderType string

const (
	ProviderFal ProviderType = "fal"
)

// Request describes one generation attempt. The synthesis parameters
// (inference steps, guidance, image count, safety filter) are fixed provider
// policy and not part of the request surface.
type Request struct {
	Prompt string
}

func NewRequest(prompt string) *Request {
	return &Request{Prompt: prompt}
}

func (r *Request) Validate() error {
	if r.Prompt == "" {
		return ErrEmptyPrompt
	}
	return nil
}

// Response is what a provider returns for one successful request.
type Response struct {
	Images []ImageRef
	Seed   int64
}

// ImageRef locates one synthesized image on the backend's CDN.
type ImageRef struct {
	URL         string `json:"url"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// GeneratedImage is one completed generation as kept in history.
//
// The JSON field names are the persisted wire format: the history blob is a
// JSON array of these records, newest first. All fields are immutable once
// the record is created.
type GeneratedImage struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Prompt    string    `json:"prompt"`
	CreatedAt time.Time `json:"createdAt"`
}
