package models

import (
	"encoding/json"
	"fmt"
)

// ContentClass is the classification of a reference track. The set is closed:
// exactly four classes exist, plus ClassNone for "no detection".
type ContentClass int8

const (
	ClassAdvert ContentClass = iota
	ClassMusic
	ClassSpeech
	ClassJingle

	// NumClasses is the size of the closed class enumeration.
	NumClasses = 4

	// ClassNone marks the absence of a detection (empty result).
	ClassNone ContentClass = -1
)

func (c ContentClass) String() string {
	switch c {
	case ClassAdvert:
		return "advert"
	case ClassMusic:
		return "music"
	case ClassSpeech:
		return "speech"
	case ClassJingle:
		return "jingle"
	default:
		return ""
	}
}

// Valid reports whether c is one of the four real classes.
func (c ContentClass) Valid() bool {
	return c >= ClassAdvert && c < NumClasses
}

// ParseContentClass converts a stored class name back to its enum value.
func ParseContentClass(s string) (ContentClass, error) {
	switch s {
	case "advert":
		return ClassAdvert, nil
	case "music":
		return ClassMusic, nil
	case "speech":
		return ClassSpeech, nil
	case "jingle":
		return ClassJingle, nil
	case "":
		return ClassNone, nil
	}
	return ClassNone, fmt.Errorf("unknown content class %q", s)
}

func (c ContentClass) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *ContentClass) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseContentClass(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// UniformSoftmax is the degenerate class distribution used by the canonical
// empty result: 1/4 for every class.
func UniformSoftmax() [NumClasses]float64 {
	var v [NumClasses]float64
	for i := range v {
		v[i] = 1.0 / NumClasses
	}
	return v
}
