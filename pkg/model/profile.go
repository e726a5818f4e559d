package model

import "github.com/m-mizutani/goerr/v2"

// Profile is the derived view of a user, fully regenerated from the
// complete accumulated fact set on every refinement cycle. Optional
// fields stay absent when no qualifying fact exists.
type Profile struct {
	Age              int      `firestore:"age" json:"age"`
	Gender           string   `firestore:"gender" json:"gender"`
	Interests        []string `firestore:"interests,omitempty" json:"interests,omitempty"`
	FavoriteFoods    []string `firestore:"favorite_foods,omitempty" json:"favorite_foods,omitempty"`
	Personality      string   `firestore:"personality" json:"personality"`
	SelfIntroduction string   `firestore:"self_introduction" json:"self_introduction"`
}

// Validate checks the synthesizer produced a usable profile. An empty
// or placeholder profile is never stored.
func (p *Profile) Validate() error {
	if p.Personality == "" {
		return goerr.New("profile personality is empty", goerr.T(ErrTagSchema))
	}
	if p.SelfIntroduction == "" {
		return goerr.New("profile self introduction is empty", goerr.T(ErrTagSchema))
	}
	return nil
}
