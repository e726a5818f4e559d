package model

import "github.com/m-mizutani/goerr/v2"

// ContextTag categorizes an extracted fact about a user.
type ContextTag string

const (
	ContextTagGender        ContextTag = "gender"
	ContextTagAge           ContextTag = "age"
	ContextTagInterests     ContextTag = "interests"
	ContextTagFavoriteFoods ContextTag = "favorite_foods"
	ContextTagPersonality   ContextTag = "personality"
)

// ContextTags lists every valid tag, in the order presented to the
// extractor schema.
func ContextTags() []ContextTag {
	return []ContextTag{
		ContextTagGender,
		ContextTagAge,
		ContextTagInterests,
		ContextTagFavoriteFoods,
		ContextTagPersonality,
	}
}

// Validate checks if the tag is a known category.
func (t ContextTag) Validate() error {
	switch t {
	case ContextTagGender, ContextTagAge, ContextTagInterests, ContextTagFavoriteFoods, ContextTagPersonality:
		return nil
	default:
		return goerr.New("invalid context tag", goerr.V("tag", t), goerr.T(ErrTagSchema))
	}
}

// ContextFact is a single tagged piece of information about a user,
// extracted from a conversation transcript. Facts accumulate per user
// as an append-only, unordered set.
type ContextFact struct {
	Content string     `firestore:"content" json:"content" jsonschema:"A statement about the user extracted from the transcript"`
	Tag     ContextTag `firestore:"tag" json:"tag" jsonschema:"Category of the statement"`
}

// Validate rejects facts with empty content or an unrecognized tag. An
// invalid tag fails fact storage rather than producing a
// partially-tagged fact.
func (f *ContextFact) Validate() error {
	if f.Content == "" {
		return goerr.New("fact content is empty", goerr.T(ErrTagSchema))
	}
	return f.Tag.Validate()
}
