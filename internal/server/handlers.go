package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/aqua777/indexquery/internal/chat"
	"github.com/aqua777/indexquery/rag/queryengine"
	"github.com/aqua777/indexquery/rag/synthesizer"
	"github.com/aqua777/indexquery/schema"
)

// sourceExcerptLen caps the source text returned with an answer.
const sourceExcerptLen = 300

type queryRequest struct {
	Query string `json:"query" form:"query"`
	Index string `json:"index" form:"index"`
}

type source struct {
	Index string  `json:"index,omitempty"`
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}

type queryResponse struct {
	Index   string   `json:"index"`
	Answer  string   `json:"answer"`
	Sources []source `json:"sources,omitempty"`
}

type indexesResponse struct {
	Indexes []string `json:"indexes"`
	Default string   `json:"default"`
}

func (s *Server) indexes(c echo.Context) error {
	return c.JSON(http.StatusOK, indexesResponse{Indexes: s.chat.Indexes(), Default: s.defaultIndex})
}

func (s *Server) query(c echo.Context) error {
	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.Index == "" {
		req.Index = s.defaultIndex
	}

	resp, err := s.chat.Query(c.Request().Context(), req.Query, req.Index)
	if err != nil {
		return queryError(err)
	}
	return c.JSON(http.StatusOK, queryResponse{
		Index:   req.Index,
		Answer:  resp.Response,
		Sources: sources(resp),
	})
}

func (s *Server) page(c echo.Context) error {
	return s.render(c, http.StatusOK, pageData{Selected: s.defaultIndex})
}

// submit answers the page form and renders the answer into the page.
func (s *Server) submit(c echo.Context) error {
	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	data := pageData{Query: req.Query, Selected: req.Index}
	if data.Selected == "" {
		data.Selected = s.defaultIndex
	}

	answer, err := s.chat.Answer(c.Request().Context(), req.Query, data.Selected)
	if err != nil {
		he := queryError(err)
		data.Error = he.Message.(string)
		return s.render(c, he.Code, data)
	}
	data.Answer = answer
	return s.render(c, http.StatusOK, data)
}

// queryError maps a chat error to the status the client sees.
func queryError(err error) *echo.HTTPError {
	switch {
	case chat.IsUnknownIndex(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	case errors.Is(err, queryengine.ErrChildNotFound):
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error()).SetInternal(err)
	default:
		return echo.NewHTTPError(http.StatusBadGateway, err.Error()).SetInternal(err)
	}
}

func sources(resp *synthesizer.Response) []source {
	out := make([]source, 0, len(resp.SourceNodes))
	for _, n := range resp.SourceNodes {
		src := source{Score: n.Score, Text: excerpt(n.Node.GetContent(schema.MetadataModeNone))}
		if name, ok := n.Node.Metadata[queryengine.MetadataKeyIndexName].(string); ok {
			src.Index = name
		}
		out = append(out, src)
	}
	return out
}

func excerpt(text string) string {
	text = strings.TrimSpace(text)
	r := []rune(text)
	if len(r) <= sourceExcerptLen {
		return text
	}
	return string(r[:sourceExcerptLen]) + "..."
}
