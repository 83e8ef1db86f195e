package request

// ContentRevision is an immutable snapshot of a request's editable fields.
type ContentRevision struct {
	TextContent     string
	ContentLanguage string
	Language        string
	Topic           string
}

// ContentUpdate carries the fields a caller wants changed. Nil fields are
// carried forward from the revision the update is applied to.
type ContentUpdate struct {
	TextContent     *string `json:"text_content"`
	ContentLanguage *string `json:"content_language"`
	Language        *string `json:"language"`
	Topic           *string `json:"topic"`
}

func (u ContentUpdate) IsEmpty() bool {
	return u.TextContent == nil && u.ContentLanguage == nil && u.Language == nil && u.Topic == nil
}

func (u ContentUpdate) Apply(base ContentRevision) ContentRevision {
	next := base
	if u.TextContent != nil {
		next.TextContent = *u.TextContent
	}
	if u.ContentLanguage != nil {
		next.ContentLanguage = *u.ContentLanguage
	}
	if u.Language != nil {
		next.Language = *u.Language
	}
	if u.Topic != nil {
		next.Topic = *u.Topic
	}
	return next
}

// Field returns a pointer suitable for ContentUpdate literals.
func Field(v string) *string {
	return &v
}
