package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const googleBooksBase = "https://www.googleapis.com/books/v1/volumes"

type googleBooksVolumesResp struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		VolumeInfo struct {
			Title               string   `json:"title"`
			Subtitle            string   `json:"subtitle"`
			Authors             []string `json:"authors"`
			PublishedDate       string   `json:"publishedDate"`
			Description         string   `json:"description"`
			Categories          []string `json:"categories"`
			IndustryIdentifiers []struct {
				Type       string `json:"type"`
				Identifier string `json:"identifier"`
			} `json:"industryIdentifiers"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

// MetadataLookup suggests book fields for an ISBN using the Google Books volumes API.
type MetadataLookup struct {
	BaseURL string
	Client  *http.Client
}

func NewMetadataLookup() *MetadataLookup {
	return &MetadataLookup{
		BaseURL: googleBooksBase,
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// ByISBN returns a BookInput pre-filled from the first matching volume. ErrNotFound when the
// API knows no such ISBN.
func (m *MetadataLookup) ByISBN(ctx context.Context, isbn string) (*BookInput, error) {
	isbn = isbnReplacer.Replace(strings.TrimSpace(isbn))
	if isbn == "" {
		return nil, invalid("isbn", "isbn is required")
	}
	q := url.Values{}
	q.Set("q", "isbn:"+isbn)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := m.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google books returned %d", resp.StatusCode)
	}
	var data googleBooksVolumesResp
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}
	if data.TotalItems == 0 || len(data.Items) == 0 {
		return nil, fmt.Errorf("%w: no volume found for isbn %s", ErrNotFound, isbn)
	}
	vi := data.Items[0].VolumeInfo
	in := &BookInput{
		Title:  vi.Title,
		Author: strings.Join(vi.Authors, ", "),
	}
	if vi.Subtitle != "" {
		in.Title = in.Title + ": " + vi.Subtitle
	}
	found := isbn
	for _, id := range vi.IndustryIdentifiers {
		if id.Type == "ISBN_13" {
			found = id.Identifier
			break
		}
		if id.Type == "ISBN_10" {
			found = id.Identifier
		}
	}
	in.ISBN = &found
	if len(vi.Categories) > 0 {
		genre := vi.Categories[0]
		in.Genre = &genre
	}
	// publishedDate is "YYYY", "YYYY-MM" or "YYYY-MM-DD".
	if len(vi.PublishedDate) >= 4 {
		if year, err := strconv.Atoi(vi.PublishedDate[:4]); err == nil {
			in.PublishedYear = &year
		}
	}
	if d := strings.TrimSpace(vi.Description); d != "" {
		in.Summary = &d
	}
	return in, nil
}
