package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ID is an identifier the backend may send as a JSON string or number.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

type Article struct {
	ID           ID         `json:"id"`
	Title        string     `json:"title"`
	URL          string     `json:"url"`
	Summary      string     `json:"summary,omitempty"`
	Content      string     `json:"content,omitempty"`
	Author       string     `json:"author,omitempty"`
	SourceDomain string     `json:"source_domain,omitempty"`
	SourceName   string     `json:"source_name,omitempty"`
	CategoryID   ID         `json:"category_id,omitempty"`
	CategoryName string     `json:"category_name,omitempty"`
	Visible      bool       `json:"is_visible"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
}

// ListResult is one page of articles. Items keep the server's order.
type ListResult struct {
	Items []Article `json:"items"`
	Total int       `json:"total"`
}

type CategoryCount struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type Source struct {
	Domain string `json:"domain"`
	Name   string `json:"name"`
	Count  int    `json:"count"`
}

type CreateArticleRequest struct {
	Title        string     `json:"title" validate:"required,max=500"`
	URL          string     `json:"url" validate:"required,url"`
	Summary      string     `json:"summary,omitempty"`
	Content      string     `json:"content,omitempty"`
	Author       string     `json:"author,omitempty" validate:"max=200"`
	SourceDomain string     `json:"source_domain,omitempty" validate:"omitempty,hostname"`
	CategoryID   ID         `json:"category_id,omitempty"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
}

type VisibilityRequest struct {
	Visible bool `json:"visible"`
}

type CategoryRequest struct {
	CategoryID ID `json:"category_id" validate:"required"`
}

type BatchVisibilityRequest struct {
	IDs     []ID `json:"ids" validate:"required,min=1,dive,required"`
	Visible bool `json:"visible"`
}

type BatchCategoryRequest struct {
	IDs        []ID `json:"ids" validate:"required,min=1,dive,required"`
	CategoryID ID   `json:"category_id" validate:"required"`
}

type BatchDeleteRequest struct {
	IDs []ID `json:"ids" validate:"required,min=1,dive,required"`
}

// BatchResult reports how many rows a batch mutation touched.
type BatchResult struct {
	Updated int `json:"updated"`
}
