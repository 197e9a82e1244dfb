package index

// DefaultSchema is the creation body for disclosure indices. Content is
// HTML-escaped text, so the text fields strip markup at analysis time.
func DefaultSchema() map[string]any {
	text := map[string]any{"type": "text", "analyzer": "html_text"}
	return map[string]any{
		"settings": map[string]any{
			"number_of_shards":   1,
			"number_of_replicas": 0,
			"analysis": map[string]any{
				"analyzer": map[string]any{
					"html_text": map[string]any{
						"type":        "custom",
						"tokenizer":   "standard",
						"char_filter": []any{"html_strip"},
						"filter":      []any{"lowercase"},
					},
				},
			},
		},
		"mappings": map[string]any{
			"properties": map[string]any{
				"documentId":       map[string]any{"type": "keyword"},
				"documentName":     map[string]any{"type": "text", "fields": map[string]any{"raw": map[string]any{"type": "keyword"}}},
				"documentTypeCode": map[string]any{"type": "keyword"},
				"publicationDate":  map[string]any{"type": "date", "format": "yyyyMMdd", "ignore_malformed": true},
				"issuerCode":       map[string]any{"type": "keyword"},
				"issuerName":       map[string]any{"type": "text", "fields": map[string]any{"raw": map[string]any{"type": "keyword"}}},
				"sections": map[string]any{
					"type": "nested",
					"properties": map[string]any{
						"sectionId": map[string]any{"type": "integer"},
						"title":     text,
						"content":   text,
					},
				},
			},
		},
	}
}

// RulesSchema is the creation body for the disclosure-rule article index.
func RulesSchema() map[string]any {
	return map[string]any{
		"settings": map[string]any{
			"number_of_shards":   1,
			"number_of_replicas": 0,
		},
		"mappings": map[string]any{
			"properties": map[string]any{
				"chapterId":   map[string]any{"type": "keyword"},
				"chapterName": map[string]any{"type": "text"},
				"sectionId":   map[string]any{"type": "keyword"},
				"sectionName": map[string]any{"type": "text"},
				"articleId":   map[string]any{"type": "keyword"},
				"articleName": map[string]any{"type": "text"},
				"content":     map[string]any{"type": "text"},
			},
		},
	}
}
