package models

import (
	"fmt"
	"net/url"
)

// Locator identifies a media object in a storage container.
type Locator struct {
	Bucket string `json:"bucket,omitempty"`
	Key    string `json:"key,omitempty"`
	URL    string `json:"url,omitempty"` // directly fetchable, possibly time-limited
}

// Validate checks that the locator can be handed to the engine as an input.
func (l Locator) Validate() error {
	if l.URL == "" {
		return fmt.Errorf("%w: input locator has no url", ErrInvalidInput)
	}
	u, err := url.Parse(l.URL)
	if err != nil {
		return fmt.Errorf("%w: input url: %v", ErrInvalidInput, err)
	}
	if u.Scheme == "" {
		return fmt.Errorf("%w: input url %q has no scheme", ErrInvalidInput, l.URL)
	}
	if u.Scheme != "file" && u.Host == "" {
		return fmt.Errorf("%w: input url %q has no host", ErrInvalidInput, l.URL)
	}
	return nil
}

// WithURL returns a copy of the locator carrying the given retrieval url.
func (l Locator) WithURL(u string) Locator {
	l.URL = u
	return l
}

func (l Locator) String() string {
	if l.Bucket == "" && l.Key == "" {
		return l.URL
	}
	return l.Bucket + "/" + l.Key
}
