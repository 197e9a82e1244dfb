package doctree

// Record is the normalized, index-ready form of one disclosure document.
type Record struct {
	DocumentID       string    `json:"documentId"`
	DocumentName     string    `json:"documentName"`
	DocumentTypeCode string    `json:"documentTypeCode"`
	PublicationDate  string    `json:"publicationDate"` // yyyyMMdd, or "" when the id has no date prefix
	IssuerCode       string    `json:"issuerCode"`
	IssuerName       string    `json:"issuerName"`
	Sections         []Section `json:"sections"`

	// Warnings are not indexed.
	Warnings []Warning `json:"-"`
}

// Warning kinds.
const (
	WarnTableOmitted           = "table omitted"
	WarnInvalidPublicationDate = "invalid publication date"
)

// Warning notes content that was dropped or could not be interpreted while
// the record was built.
type Warning struct {
	Kind      string
	SectionID int // 0 for document-level warnings
	Detail    string
}

// Section is one top-level titled segment of a document.
type Section struct {
	SectionID int    `json:"sectionId"` // 1-based, dense
	Title     string `json:"title"`
	Content   string `json:"content"`
}

// ItemType tags a content item.
type ItemType string

const (
	ItemText  ItemType = "text"
	ItemTable ItemType = "table"
)

// Item is one piece of section content before rendering.
type Item struct {
	Type  ItemType
	Value string
}

// Article is one numbered article of a disclosure-rule document.
type Article struct {
	ChapterID   string `json:"chapterId"`
	ChapterName string `json:"chapterName"`
	SectionID   string `json:"sectionId"`
	SectionName string `json:"sectionName"`
	ArticleID   string `json:"articleId"`
	ArticleName string `json:"articleName"`
	Content     string `json:"content"`
}
