package models

import "strings"

type Language string

const (
	LanguageUz  Language = "uz"
	LanguageKaa Language = "kaa"
	LanguageRu  Language = "ru"
)

// Languages lists the supported content languages in upload order.
var Languages = []Language{LanguageUz, LanguageKaa, LanguageRu}

func (l Language) IsValid() bool {
	switch l {
	case LanguageUz, LanguageKaa, LanguageRu:
		return true
	}
	return false
}

// Label is the upper-case tag used in upload error messages, e.g. "KAA".
func (l Language) Label() string {
	return strings.ToUpper(string(l))
}

// ParseLanguage falls back to Uzbek for unknown codes.
func ParseLanguage(s string) Language {
	l := Language(strings.ToLower(strings.TrimSpace(s)))
	if l.IsValid() {
		return l
	}
	return LanguageUz
}

// AnswerSymbol is one of the four multiple-choice options.
type AnswerSymbol string

const (
	AnswerA AnswerSymbol = "A"
	AnswerB AnswerSymbol = "B"
	AnswerC AnswerSymbol = "C"
	AnswerD AnswerSymbol = "D"
)

func (a AnswerSymbol) IsValid() bool {
	switch a {
	case AnswerA, AnswerB, AnswerC, AnswerD:
		return true
	}
	return false
}

// NormalizeAnswer upper-cases and trims a symbol; callers still check IsValid.
func NormalizeAnswer(s string) AnswerSymbol {
	return AnswerSymbol(strings.ToUpper(strings.TrimSpace(s)))
}

// LocalizedName holds a value in every supported language.
type LocalizedName struct {
	Uz  string `json:"uz" gorm:"column:name_uz;size:255;not null"`
	Kaa string `json:"kaa" gorm:"column:name_kaa;size:255"`
	Ru  string `json:"ru" gorm:"column:name_ru;size:255"`
}

// In returns the name for lang, falling back to Uzbek when it is empty.
func (n LocalizedName) In(lang Language) string {
	switch lang {
	case LanguageKaa:
		if n.Kaa != "" {
			return n.Kaa
		}
	case LanguageRu:
		if n.Ru != "" {
			return n.Ru
		}
	}
	return n.Uz
}
