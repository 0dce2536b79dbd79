package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"civreg/internal/citizen/models"
	"civreg/internal/citizen/service"
	"civreg/internal/citizen/store"
)

// HandlerSuite exercises HTTP concerns (routing, binding, status mapping)
// against the real service over the in-memory store. No mocks.
type HandlerSuite struct {
	suite.Suite
	router http.Handler
	store  *store.InMemory
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.store = store.NewInMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(s.store, logger, nil)

	r := chi.NewRouter()
	New(svc, logger).Register(r)
	s.router = r
}

func (s *HandlerSuite) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *HandlerSuite) doJSON(method, path string, v any) *httptest.ResponseRecorder {
	b, err := json.Marshal(v)
	s.Require().NoError(err)
	return s.do(method, path, bytes.NewReader(b), "application/json")
}

func (s *HandlerSuite) createCitizen(fullName, snils, inn string) int64 {
	w := s.doJSON(http.MethodPost, "/api/citizen", models.Citizen{
		FullName:  fullName,
		Snils:     snils,
		Inn:       inn,
		BirthDate: models.NewDate(1980, time.March, 15),
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var resp CreateResponse
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&resp))
	return resp.ID
}

func (s *HandlerSuite) TestGet() {
	s.Run("returns the record", func() {
		id := s.createCitizen("Ivanov Ivan Petrovich", "111-111-111 00", "111111111111")

		w := s.do(http.MethodGet, fmt.Sprintf("/api/citizen/%d", id), nil, "")
		s.Require().Equal(http.StatusOK, w.Code)

		var c models.Citizen
		s.Require().NoError(json.NewDecoder(w.Body).Decode(&c))
		s.Equal(id, c.ID)
		s.Equal("Ivanov Ivan Petrovich", c.FullName)
	})

	s.Run("unknown id is 404", func() {
		w := s.do(http.MethodGet, "/api/citizen/99999", nil, "")
		s.Equal(http.StatusNotFound, w.Code)
	})

	s.Run("non-numeric id is 400", func() {
		w := s.do(http.MethodGet, "/api/citizen/abc", nil, "")
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *HandlerSuite) TestCreate() {
	s.Run("returns 201 with the assigned id", func() {
		id := s.createCitizen("Ivanov Ivan Petrovich", "111-111-111 00", "111111111111")
		s.NotZero(id)
	})

	s.Run("empty body is 400", func() {
		w := s.do(http.MethodPost, "/api/citizen", nil, "application/json")
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("invalid record is 400", func() {
		w := s.doJSON(http.MethodPost, "/api/citizen", models.Citizen{
			FullName:  "",
			BirthDate: models.NewDate(1980, time.March, 15),
		})
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("duplicate snils is 409", func() {
		w := s.doJSON(http.MethodPost, "/api/citizen", models.Citizen{
			FullName:  "Petroov Oleg Dmitrievich",
			Snils:     "111-111-111 00",
			Inn:       "999999999999",
			BirthDate: models.NewDate(1985, time.May, 5),
		})
		s.Equal(http.StatusConflict, w.Code)

		var body map[string]string
		s.Require().NoError(json.NewDecoder(w.Body).Decode(&body))
		s.Equal("conflict", body["error"])
	})
}

func (s *HandlerSuite) TestUpdate() {
	s.Run("replaces the record", func() {
		id := s.createCitizen("Ivanov Ivan Petrovich", "111-111-111 00", "111111111111")

		w := s.doJSON(http.MethodPut, fmt.Sprintf("/api/citizen/%d", id), models.Citizen{
			ID:        424242, // ignored; the path id wins
			FullName:  "Ivanov Ivan Dmitrievich",
			Snils:     "111-111-111 00",
			Inn:       "111111111111",
			BirthDate: models.NewDate(1980, time.March, 15),
		})
		s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

		get := s.do(http.MethodGet, fmt.Sprintf("/api/citizen/%d", id), nil, "")
		var c models.Citizen
		s.Require().NoError(json.NewDecoder(get.Body).Decode(&c))
		s.Equal(id, c.ID)
		s.Equal("Ivanov Ivan Dmitrievich", c.FullName)
	})

	s.Run("unknown id is 404", func() {
		w := s.doJSON(http.MethodPut, "/api/citizen/99999", models.Citizen{
			FullName:  "Nobody Nobody Nobody",
			BirthDate: models.NewDate(1980, time.March, 15),
		})
		s.Equal(http.StatusNotFound, w.Code)
	})
}

func (s *HandlerSuite) TestDelete() {
	s.Run("deletes then 404s on the second call", func() {
		id := s.createCitizen("Ivanov Ivan Petrovich", "111-111-111 00", "111111111111")
		path := fmt.Sprintf("/api/citizen/%d", id)

		s.Equal(http.StatusOK, s.do(http.MethodDelete, path, nil, "").Code)
		s.Equal(http.StatusNotFound, s.do(http.MethodDelete, path, nil, "").Code)
	})
}

func (s *HandlerSuite) TestSearch() {
	s.Run("filters by full name prefix", func() {
		s.createCitizen("Ivanov Ivan Petrovich", "111-111-111 00", "111111111111")
		s.createCitizen("Petrov Igor Ivanoovich", "222-222-222 00", "222222222222")

		w := s.do(http.MethodGet, "/api/citizen/search?fullName=Ivanov", nil, "")
		s.Require().Equal(http.StatusOK, w.Code)

		var found []models.Citizen
		s.Require().NoError(json.NewDecoder(w.Body).Decode(&found))
		s.Require().Len(found, 1)
		s.Equal("Ivanov Ivan Petrovich", found[0].FullName)
	})

	s.Run("pages with explicit parameters", func() {
		for i := 0; i < 5; i++ {
			s.createCitizen(
				fmt.Sprintf("Citizen Number%d Petrovich", i),
				fmt.Sprintf("%03d-000-000 00", i),
				fmt.Sprintf("%012d", i),
			)
		}
		w := s.do(http.MethodGet, "/api/citizen/search?pageNumber=1&pageSize=2", nil, "")
		s.Require().Equal(http.StatusOK, w.Code)

		var found []models.Citizen
		s.Require().NoError(json.NewDecoder(w.Body).Decode(&found))
		s.Len(found, 2)
	})

	s.Run("malformed date parameter is 400", func() {
		w := s.do(http.MethodGet, "/api/citizen/search?birthDate=15.03.1980", nil, "")
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("malformed paging parameter is 400", func() {
		w := s.do(http.MethodGet, "/api/citizen/search?pageSize=lots", nil, "")
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("no matches returns an empty array", func() {
		w := s.do(http.MethodGet, "/api/citizen/search?fullName=Zzz", nil, "")
		s.Require().Equal(http.StatusOK, w.Code)
		s.Equal("[]", strings.TrimSpace(w.Body.String()))
	})
}

func (s *HandlerSuite) TestExport() {
	s.Run("returns csv with the full matching set", func() {
		s.createCitizen("Ivanov Ivan Petrovich", "111-111-111 00", "111111111111")
		s.createCitizen("Petrov Igor Ivanoovich", "222-222-222 00", "222222222222")

		w := s.do(http.MethodGet, "/api/citizen/export", nil, "")
		s.Require().Equal(http.StatusOK, w.Code)
		s.Equal("text/csv", w.Header().Get("Content-Type"))

		lines := strings.Split(strings.TrimRight(w.Body.String(), "\n"), "\n")
		s.Len(lines, 3) // header + two records
		s.Equal("Id;FullName;Snils;Inn;BirthDate;DeathDate", lines[0])
	})
}

func (s *HandlerSuite) TestImport() {
	multipartBody := func(fieldName, content string) (*bytes.Buffer, string) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile(fieldName, "citizens.csv")
		s.Require().NoError(err)
		_, err = fw.Write([]byte(content))
		s.Require().NoError(err)
		s.Require().NoError(mw.Close())
		return &buf, mw.FormDataContentType()
	}

	csvContent := "Id;FullName;Snils;Inn;BirthDate;DeathDate\n" +
		";Ivanov Ivan Petrovich;123-456-789 00;123456789012;1980-03-15;\n"

	s.Run("imports records from the uploaded file", func() {
		body, contentType := multipartBody("file", csvContent)
		w := s.do(http.MethodPost, "/api/citizen/import", body, contentType)
		s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

		var resp ImportResponse
		s.Require().NoError(json.NewDecoder(w.Body).Decode(&resp))
		s.Equal(1, resp.Imported)
	})

	s.Run("accepts any file field name", func() {
		fresh := "Id;FullName;Snils;Inn;BirthDate;DeathDate\n" +
			";Petroov Oleg Dmitrievich;999-999-999 00;999999999999;1985-05-05;\n"
		body, contentType := multipartBody("scvFile", fresh)
		w := s.do(http.MethodPost, "/api/citizen/import", body, contentType)
		s.Equal(http.StatusOK, w.Code, w.Body.String())
	})

	s.Run("malformed csv is 400", func() {
		body, contentType := multipartBody("file", "Id;Snils\n1;\n")
		w := s.do(http.MethodPost, "/api/citizen/import", body, contentType)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("uniqueness violation is 409 with no partial import", func() {
		dupes := "Id;FullName;Snils;Inn;BirthDate;DeathDate\n" +
			";Pushkin Anna Dmitrievich;555-555-555 00;;1970-01-01;\n" +
			";Tolstoy Nina Petrovich;555-555-555 00;;1971-02-02;\n"
		body, contentType := multipartBody("file", dupes)
		w := s.do(http.MethodPost, "/api/citizen/import", body, contentType)
		s.Equal(http.StatusConflict, w.Code)
	})

	s.Run("missing file is 400", func() {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		s.Require().NoError(mw.WriteField("note", "no file here"))
		s.Require().NoError(mw.Close())

		w := s.do(http.MethodPost, "/api/citizen/import", &buf, mw.FormDataContentType())
		s.Equal(http.StatusBadRequest, w.Code)
	})
}
