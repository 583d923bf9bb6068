// Package apitest runs an in-memory Lumina backend for tests.
package apitest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pders01/lumina/internal/api"
)

// Server is a gin-backed fake of the articles API. It filters, sorts and
// pages like the real backend closely enough for client tests.
type Server struct {
	mu         sync.Mutex
	articles   []api.Article
	categories []api.CategoryCount
	token      string
	failures   map[string]failure
	requests   []Request
	nextID     int

	srv *httptest.Server
}

// Request is a recorded call.
type Request struct {
	Method string
	Path   string
	Query  string
	Header http.Header
}

type failure struct {
	status int
	detail string
}

func init() {
	gin.SetMode(gin.TestMode)
}

func NewServer(articles []api.Article, categories []api.CategoryCount) *Server {
	s := &Server{
		articles:   append([]api.Article(nil), articles...),
		categories: append([]api.CategoryCount(nil), categories...),
		failures:   make(map[string]failure),
		nextID:     len(articles) + 1,
	}
	s.srv = httptest.NewServer(s.router())
	return s
}

func (s *Server) URL() string { return s.srv.URL }

func (s *Server) Close() { s.srv.Close() }

// RequireToken makes every route answer 401 unless the bearer token matches.
func (s *Server) RequireToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Fail makes requests whose path starts with prefix answer with status and a
// {detail} body.
func (s *Server) Fail(prefix string, status int, detail string) {
	s.mu.Lock()
	s.failures[prefix] = failure{status: status, detail: detail}
	s.mu.Unlock()
}

// Recover undoes Fail for prefix.
func (s *Server) Recover(prefix string) {
	s.mu.Lock()
	delete(s.failures, prefix)
	s.mu.Unlock()
}

func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

func (s *Server) Articles() []api.Article {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.Article(nil), s.articles...)
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.record, s.auth, s.injectFailures)

	g := r.Group("/api")
	g.GET("/articles", s.listArticles)
	g.POST("/articles", s.createArticle)
	g.GET("/articles/:id", s.getArticle)
	g.DELETE("/articles/:id", s.deleteArticle)
	g.PATCH("/articles/:id/visibility", s.setVisibility)
	g.PATCH("/articles/:id/category", s.setCategory)
	g.POST("/articles/batch/visibility", s.batchVisibility)
	g.POST("/articles/batch/category", s.batchCategory)
	g.POST("/articles/batch/delete", s.batchDelete)
	g.GET("/categories/stats", s.categoryStats)
	g.GET("/authors", s.authors)
	g.GET("/sources", s.sources)
	return r
}

func (s *Server) record(c *gin.Context) {
	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method: c.Request.Method,
		Path:   c.Request.URL.Path,
		Query:  c.Request.URL.RawQuery,
		Header: c.Request.Header.Clone(),
	})
	s.mu.Unlock()
	c.Next()
}

func (s *Server) auth(c *gin.Context) {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()
	if token != "" && c.GetHeader("Authorization") != "Bearer "+token {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Not authenticated"})
		return
	}
	c.Next()
}

func (s *Server) injectFailures(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for prefix, f := range s.failures {
		if strings.HasPrefix(c.Request.URL.Path, prefix) {
			c.AbortWithStatusJSON(f.status, gin.H{"detail": f.detail})
			return
		}
	}
	c.Next()
}

func (s *Server) filtered(c *gin.Context, withCategory bool) []api.Article {
	q := c.Request.URL.Query()
	search := strings.ToLower(q.Get("search"))
	source := q.Get("source_domain")
	author := q.Get("author")
	visibility := q.Get("visibility")
	category := q.Get("category_id")
	pubStart, pubEnd := day(q.Get("published_at_start")), day(q.Get("published_at_end"))

	var out []api.Article
	for _, a := range s.articles {
		if search != "" && !strings.Contains(strings.ToLower(a.Title+" "+a.Summary), search) {
			continue
		}
		if source != "" && a.SourceDomain != source {
			continue
		}
		if author != "" && a.Author != author {
			continue
		}
		if visibility == "visible" && !a.Visible || visibility == "hidden" && a.Visible {
			continue
		}
		if withCategory && category != "" && string(a.CategoryID) != category {
			continue
		}
		if a.PublishedAt != nil {
			if !pubStart.IsZero() && a.PublishedAt.Before(pubStart) {
				continue
			}
			if !pubEnd.IsZero() && !a.PublishedAt.Before(pubEnd.AddDate(0, 0, 1)) {
				continue
			}
		}
		out = append(out, a)
	}
	return out
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func stamp(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func (s *Server) listArticles(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.filtered(c, true)
	if c.Query("sort_by") == "created_at_desc" {
		sort.SliceStable(items, func(i, j int) bool { return stamp(items[i].CreatedAt).After(stamp(items[j].CreatedAt)) })
	} else {
		sort.SliceStable(items, func(i, j int) bool { return stamp(items[i].PublishedAt).After(stamp(items[j].PublishedAt)) })
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}
	total := len(items)
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	c.JSON(http.StatusOK, api.ListResult{Items: append([]api.Article{}, items[start:end]...), Total: total})
}

func (s *Server) categoryStats(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[api.ID]int)
	for _, a := range s.filtered(c, false) {
		counts[a.CategoryID]++
	}
	out := make([]api.CategoryCount, 0, len(s.categories))
	for _, cat := range s.categories {
		out = append(out, api.CategoryCount{ID: cat.ID, Name: cat.Name, Count: counts[cat.ID]})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) find(id string) int {
	for i, a := range s.articles {
		if string(a.ID) == id {
			return i
		}
	}
	return -1
}

func (s *Server) getArticle(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(c.Param("id"))
	if i < 0 {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Article not found"})
		return
	}
	c.JSON(http.StatusOK, s.articles[i])
}

func (s *Server) deleteArticle(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(c.Param("id"))
	if i < 0 {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Article not found"})
		return
	}
	s.articles = append(s.articles[:i], s.articles[i+1:]...)
	c.Status(http.StatusNoContent)
}

func (s *Server) setVisibility(c *gin.Context) {
	var req api.VisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(c.Param("id"))
	if i < 0 {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Article not found"})
		return
	}
	s.articles[i].Visible = req.Visible
	c.JSON(http.StatusOK, s.articles[i])
}

func (s *Server) setCategory(c *gin.Context) {
	var req api.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(c.Param("id"))
	if i < 0 {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Article not found"})
		return
	}
	s.articles[i].CategoryID = req.CategoryID
	c.JSON(http.StatusOK, s.articles[i])
}

func (s *Server) batchVisibility(c *gin.Context) {
	var req api.BatchVisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range req.IDs {
		if i := s.find(string(id)); i >= 0 {
			s.articles[i].Visible = req.Visible
			n++
		}
	}
	c.JSON(http.StatusOK, api.BatchResult{Updated: n})
}

func (s *Server) batchCategory(c *gin.Context) {
	var req api.BatchCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range req.IDs {
		if i := s.find(string(id)); i >= 0 {
			s.articles[i].CategoryID = req.CategoryID
			n++
		}
	}
	c.JSON(http.StatusOK, api.BatchResult{Updated: n})
}

func (s *Server) batchDelete(c *gin.Context) {
	var req api.BatchDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	drop := make(map[api.ID]bool, len(req.IDs))
	for _, id := range req.IDs {
		drop[id] = true
	}
	kept := s.articles[:0]
	for _, a := range s.articles {
		if !drop[a.ID] {
			kept = append(kept, a)
		}
	}
	n := len(s.articles) - len(kept)
	s.articles = kept
	c.JSON(http.StatusOK, api.BatchResult{Updated: n})
}

func (s *Server) createArticle(c *gin.Context) {
	var req api.CreateArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.articles {
		if a.URL == req.URL {
			c.JSON(http.StatusConflict, gin.H{"detail": "Article with this URL already exists"})
			return
		}
	}
	now := time.Now().UTC()
	a := api.Article{
		ID:           api.ID(strconv.Itoa(s.nextID)),
		Title:        req.Title,
		URL:          req.URL,
		Summary:      req.Summary,
		Content:      req.Content,
		Author:       req.Author,
		SourceDomain: req.SourceDomain,
		CategoryID:   req.CategoryID,
		Visible:      true,
		PublishedAt:  req.PublishedAt,
		CreatedAt:    &now,
	}
	s.nextID++
	s.articles = append(s.articles, a)
	c.JSON(http.StatusCreated, a)
}

func (s *Server) authors(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	out := []string{}
	for _, a := range s.articles {
		if a.Author != "" && !seen[a.Author] {
			seen[a.Author] = true
			out = append(out, a.Author)
		}
	}
	sort.Strings(out)
	c.JSON(http.StatusOK, out)
}

func (s *Server) sources(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int)
	for _, a := range s.articles {
		if a.SourceDomain != "" {
			counts[a.SourceDomain]++
		}
	}
	out := make([]api.Source, 0, len(counts))
	for domain, n := range counts {
		out = append(out, api.Source{Domain: domain, Name: domain, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	c.JSON(http.StatusOK, out)
}

// SampleArticles builds n articles published one hour apart, newest first,
// spread over three categories and two sources.
func SampleArticles(n int) []api.Article {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	out := make([]api.Article, 0, n)
	for i := 1; i <= n; i++ {
		pub := base.Add(-time.Duration(i) * time.Hour)
		created := pub.Add(10 * time.Minute)
		domain := "example.com"
		if i%2 == 0 {
			domain = "news.example.org"
		}
		out = append(out, api.Article{
			ID:           api.ID(strconv.Itoa(i)),
			Title:        fmt.Sprintf("Article %d", i),
			URL:          fmt.Sprintf("https://%s/a/%d", domain, i),
			Summary:      fmt.Sprintf("Summary of article %d", i),
			Content:      fmt.Sprintf("<p>Body of <b>article %d</b></p>", i),
			Author:       fmt.Sprintf("author-%d", i%3),
			SourceDomain: domain,
			CategoryID:   api.ID(strconv.Itoa(i%3 + 1)),
			Visible:      i%4 != 0,
			PublishedAt:  &pub,
			CreatedAt:    &created,
		})
	}
	return out
}

func SampleCategories() []api.CategoryCount {
	return []api.CategoryCount{
		{ID: "1", Name: "Technology"},
		{ID: "2", Name: "Science"},
		{ID: "3", Name: "Culture"},
	}
}
