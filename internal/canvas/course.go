// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package canvas

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// Course is one Canvas course together with the session it was fetched on.
type Course struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	CourseCode string `json:"course_code"`

	client *Client
}

// Modules lists the course's modules in position order, following pagination.
func (co *Course) Modules(ctx context.Context) ([]*Module, error) {
	var all []*Module
	next := co.client.apiURL(fmt.Sprintf("/courses/%d/modules", co.ID), url.Values{"per_page": {perPage}})
	for next != "" {
		var page []*Module
		n, err := co.client.getJSON(ctx, next, &page)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		next = n
	}
	for _, m := range all {
		m.client = co.client
		m.courseID = co.ID
	}
	return all, nil
}

// Page fetches a wiki page by its URL slug.
func (co *Course) Page(ctx context.Context, slug string) (*Page, error) {
	var page Page
	u := co.client.apiURL(fmt.Sprintf("/courses/%d/pages/%s", co.ID, url.PathEscape(slug)), nil)
	if _, err := co.client.getJSON(ctx, u, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// File fetches a file record by ID. The returned handle can download the
// file's content.
func (co *Course) File(ctx context.Context, id int64) (*File, error) {
	var file File
	u := co.client.apiURL(fmt.Sprintf("/courses/%d/files/%d", co.ID, id), nil)
	if _, err := co.client.getJSON(ctx, u, &file); err != nil {
		return nil, err
	}
	file.client = co.client
	return &file, nil
}

// Assignment fetches an assignment by ID.
func (co *Course) Assignment(ctx context.Context, id int64) (*Assignment, error) {
	var assignment Assignment
	u := co.client.apiURL(fmt.Sprintf("/courses/%d/assignments/%d", co.ID, id), nil)
	if _, err := co.client.getJSON(ctx, u, &assignment); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// Module is one module within a course.
type Module struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`

	client   *Client
	courseID int64
}

// Items lists the module's items in listing order, following pagination.
func (m *Module) Items(ctx context.Context) ([]*Item, error) {
	var all []*Item
	next := m.client.apiURL(fmt.Sprintf("/courses/%d/modules/%d/items", m.courseID, m.ID), url.Values{"per_page": {perPage}})
	for next != "" {
		var page []*Item
		n, err := m.client.getJSON(ctx, next, &page)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		next = n
	}
	return all, nil
}

// Item type tags as Canvas reports them.
const (
	TypePage        = "Page"
	TypeFile        = "File"
	TypeExternalURL = "ExternalUrl"
	TypeSubHeader   = "SubHeader"
	TypeAssignment  = "Assignment"
	TypeDiscussion  = "Discussion"
	TypeQuiz        = "Quiz"
)

// Item is one entry of a module listing. Which payload fields are populated
// depends on Type: Page carries PageURL (the slug), File and Assignment carry
// ContentID, ExternalUrl carries ExternalURL. HTMLURL points back at the item
// in the Canvas web UI when available.
type Item struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Type        string `json:"type"`
	ContentID   int64  `json:"content_id"`
	PageURL     string `json:"page_url"`
	ExternalURL string `json:"external_url"`
	HTMLURL     string `json:"html_url"`
}

// Page is a course wiki page. Body is raw HTML.
type Page struct {
	Title string `json:"title"`
	Slug  string `json:"url"`
	Body  string `json:"body"`
}

// Assignment is a course assignment. Description is raw HTML.
type Assignment struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	DueAt          *time.Time `json:"due_at"`
	PointsPossible float64    `json:"points_possible"`
}
