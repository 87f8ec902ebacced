package models

import "time"

// Question is a single gradable question produced by the document splitter.
// Each language variant is stored as a standalone package in blob storage.
type Question struct {
	ID        uint `json:"id" gorm:"primaryKey"`
	SubjectID uint `json:"subject_id" gorm:"not null;index"`

	// Storage keys of the per-language packages
	DocumentUz  *string `json:"document_uz" gorm:"size:500"`
	DocumentKaa *string `json:"document_kaa" gorm:"size:500"`
	DocumentRu  *string `json:"document_ru" gorm:"size:500"`

	CorrectAnswer AnswerSymbol `json:"-" gorm:"size:1;not null"`
	IsActive      bool         `json:"is_active" gorm:"default:true;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Subject Subject `json:"subject" gorm:"foreignKey:SubjectID"`
}

// DocumentKey returns the storage key of the variant in lang.
func (q *Question) DocumentKey(lang Language) (string, bool) {
	var key *string
	switch lang {
	case LanguageUz:
		key = q.DocumentUz
	case LanguageKaa:
		key = q.DocumentKaa
	case LanguageRu:
		key = q.DocumentRu
	}
	if key == nil || *key == "" {
		return "", false
	}
	return *key, true
}

// SetDocumentKey records the storage key of the variant in lang.
func (q *Question) SetDocumentKey(lang Language, key string) {
	switch lang {
	case LanguageUz:
		q.DocumentUz = &key
	case LanguageKaa:
		q.DocumentKaa = &key
	case LanguageRu:
		q.DocumentRu = &key
	}
}

// Languages lists the variants present on the question.
func (q *Question) Languages() []Language {
	var out []Language
	for _, lang := range Languages {
		if _, ok := q.DocumentKey(lang); ok {
			out = append(out, lang)
		}
	}
	return out
}

// DocumentColumn is the column holding the variant key for lang.
func DocumentColumn(lang Language) string {
	switch lang {
	case LanguageKaa:
		return "document_kaa"
	case LanguageRu:
		return "document_ru"
	default:
		return "document_uz"
	}
}
