package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"dotify/internal/handlers/render"
	"dotify/internal/services"
)

// pathID parses the named path parameter as an ObjectID, writing a 400 when
// it is malformed
func pathID(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		render.ErrorMessage(c, http.StatusBadRequest, fmt.Sprintf("Invalid %s", name))
		return primitive.NilObjectID, false
	}
	return id, true
}

func parseID(field, value string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(value))
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("invalid %s: %q", field, value)
	}
	return id, nil
}

func parseIDs(field string, values []string) ([]primitive.ObjectID, error) {
	values = splitList(values)
	ids := make([]primitive.ObjectID, 0, len(values))
	for _, value := range values {
		id, err := parseID(field, value)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// optionalID parses an id that may be absent. An empty present value yields
// the zero id, which clears the reference.
func optionalID(field string, value *string) (*primitive.ObjectID, error) {
	if value == nil {
		return nil, nil
	}
	if strings.TrimSpace(*value) == "" {
		zero := primitive.NilObjectID
		return &zero, nil
	}
	id, err := parseID(field, *value)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// splitList accepts repeated form fields and comma separated values alike
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func optionalList(values *[]string) *[]string {
	if values == nil {
		return nil
	}
	out := splitList(*values)
	return &out
}

var dateLayouts = []string{time.RFC3339, "2006-01-02"}

func parseDate(field string, value *string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(*value)); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid %s: %q", field, *value)
}

// bindBody decodes a JSON or multipart body into req, writing a 400 when it
// is malformed
func bindBody(c *gin.Context, req interface{}) bool {
	var err error
	switch c.ContentType() {
	case binding.MIMEMultipartPOSTForm:
		err = c.ShouldBindWith(req, binding.FormMultipart)
	case binding.MIMEPOSTForm:
		err = c.ShouldBindWith(req, binding.Form)
	default:
		if c.Request.ContentLength == 0 {
			return true
		}
		err = c.ShouldBindJSON(req)
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			render.ErrorMessage(c, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		render.ErrorMessage(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// uploads saves multipart files to temp paths and removes any the uploader
// left behind
type uploads struct {
	dir   string
	paths []string
}

func newUploads(dir string) *uploads {
	return &uploads{dir: dir}
}

// save stores the named multipart file and returns its path, or "" when the
// request carried no such file
func (u *uploads) save(c *gin.Context, field string) (string, error) {
	if c.ContentType() != binding.MIMEMultipartPOSTForm {
		return "", nil
	}
	header, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", field, err)
	}

	if err := os.MkdirAll(u.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}
	path := filepath.Join(u.dir, "tmp-"+uuid.NewString()+strings.ToLower(filepath.Ext(header.Filename)))
	if err := c.SaveUploadedFile(header, path); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", field, err)
	}
	u.paths = append(u.paths, path)
	return path, nil
}

// saveAll stores each named file, writing a 400 on the first failure
func (u *uploads) saveAll(c *gin.Context, fields ...string) (map[string]string, bool) {
	out := make(map[string]string, len(fields))
	for _, field := range fields {
		path, err := u.save(c, field)
		if err != nil {
			slog.Warn("Failed to receive upload", "field", field, "error", err)
			render.ErrorMessage(c, http.StatusBadRequest, "Invalid file upload: "+field)
			return nil, false
		}
		out[field] = path
	}
	return out, true
}

func (u *uploads) cleanup() {
	for _, path := range u.paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			slog.Warn("Failed to remove upload temp file", "path", path, "error", err)
		}
	}
}

// queryInt reads an integer query parameter, falling back to def when absent
func queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		render.ErrorMessage(c, http.StatusBadRequest, fmt.Sprintf("Invalid %s", name))
		return 0, false
	}
	return n, true
}

func badRequest(c *gin.Context, err error) {
	render.ErrorMessage(c, http.StatusBadRequest, err.Error())
}

// listParams reads paging and filter query parameters. ownerParam names the
// query parameter holding the owning artist or creator id, if any.
func listParams(c *gin.Context, ownerParam string) (services.ListParams, bool) {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return services.ListParams{}, false
	}
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return services.ListParams{}, false
	}
	params := services.ListParams{
		Page:   page,
		Limit:  limit,
		Genre:  c.Query("genre"),
		Search: c.Query("search"),
	}
	if ownerParam != "" && c.Query(ownerParam) != "" {
		owner, err := parseID(ownerParam, c.Query(ownerParam))
		if err != nil {
			badRequest(c, err)
			return services.ListParams{}, false
		}
		params.Owner = owner
	}
	return params, true
}
