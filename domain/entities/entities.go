package entities

import (
	"errors"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// MaxPhraseLength is the longest phrase, in characters, a lesson may store.
const MaxPhraseLength = 128

// MaxLessonNameLength bounds lesson names, which double as file names.
const MaxLessonNameLength = 100

// HintMask replaces letters and digits in a translation hint.
const HintMask = '_'

// Lesson is a named unit of learning content made of ordered phrases.
type Lesson struct {
	ID                 int64     `json:"id" bson:"_id" db:"id"`
	Name               string    `json:"name" bson:"name" db:"name"`
	Description        string    `json:"description,omitempty" bson:"description" db:"description"`
	NumPhrases         int       `json:"num_phrases" bson:"num_phrases" db:"num_phrases"`
	Popularity         int       `json:"popularity" bson:"popularity" db:"popularity"`
	OriginalLanguageID *int64    `json:"original_language_id" bson:"original_language_id" db:"original_language_id"`
	CreatedAt          time.Time `json:"created_at" bson:"created_at" db:"created_at"`
}

// Phrase belongs to a lesson. Its ordinal is its position in creation order.
type Phrase struct {
	ID       int64 `json:"id" bson:"_id" db:"id"`
	LessonID int64 `json:"lesson_id" bson:"lesson_id" db:"lesson_id"`
}

// Translation is the text of a phrase in one language.
type Translation struct {
	PhraseID   int64  `json:"phrase_id" bson:"phrase_id" db:"phrase_id"`
	LanguageID int64  `json:"language_id" bson:"language_id" db:"language_id"`
	Text       string `json:"text" bson:"text" db:"text"`
	Hint       string `json:"hint" bson:"hint" db:"hint"`
}

// Language is identified by its IETF-style tag, e.g. "en" or "pt-BR".
type Language struct {
	ID   int64  `json:"id" bson:"_id" db:"id"`
	Name string `json:"name" bson:"name" db:"name"`
	Tag  string `json:"tag" bson:"tag" db:"tag"`
}

// Voice is a speech-synthesis identity. ShortName is the vendor voice id.
type Voice struct {
	ID          int64  `json:"id" bson:"_id" db:"id"`
	ShortName   string `json:"short_name" bson:"short_name" db:"short_name"`
	DisplayName string `json:"display_name" bson:"display_name" db:"display_name"`
	LanguageID  int64  `json:"language_id" bson:"language_id" db:"language_id"`
	Locale      string `json:"locale" bson:"locale" db:"locale"`
	Gender      string `json:"gender,omitempty" bson:"gender" db:"gender"`
}

// TokenStatus is the admission state of an access token.
type TokenStatus struct {
	Valid       bool `json:"valid"`
	AlreadyUsed bool `json:"already_used"`
}

// NewTranslation builds a translation with its hint filled in.
func NewTranslation(phraseID, languageID int64, text string) *Translation {
	return &Translation{
		PhraseID:   phraseID,
		LanguageID: languageID,
		Text:       text,
		Hint:       Hint(text),
	}
}

// Hint masks every letter and digit of text, keeping punctuation and spacing,
// so the result has the same number of characters as text.
func Hint(text string) string {
	out := make([]rune, 0, utf8.RuneCountInString(text))
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			out = append(out, HintMask)
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

// Domain validation methods
func (l *Lesson) Validate() error {
	if l.Name == "" {
		return errors.New("lesson name is required")
	}
	// names are used as directory names
	if l.Name == "." || l.Name == ".." || strings.ContainsAny(l.Name, `/\`) {
		return errors.New("lesson name must not contain path separators")
	}
	if utf8.RuneCountInString(l.Name) > MaxLessonNameLength {
		return errors.New("lesson name is too long")
	}
	if l.NumPhrases < 1 {
		return errors.New("lesson must have at least one phrase")
	}
	return nil
}

func (l *Language) Validate() error {
	if l.Tag == "" {
		return errors.New("language tag is required")
	}
	if l.Name == "" {
		return errors.New("language name is required")
	}
	return nil
}

func (v *Voice) Validate() error {
	if v.ShortName == "" {
		return errors.New("voice short name is required")
	}
	if v.LanguageID == 0 {
		return errors.New("voice language is required")
	}
	return nil
}
