package media

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const cloudinaryAPIURL = "https://api.cloudinary.com/v1_1"

// CloudinaryUploader uploads files through Cloudinary's signed upload API
type CloudinaryUploader struct {
	client    *resty.Client
	baseURL   string
	cloudName string
	apiKey    string
	apiSecret string
	prefix    string
	now       func() time.Time
}

type cloudinaryResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
}

type cloudinaryError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewCloudinaryUploader creates an uploader for cloudName. Folders are
// nested under prefix.
func NewCloudinaryUploader(cloudName, apiKey, apiSecret, prefix string) *CloudinaryUploader {
	client := resty.New().
		SetTimeout(2 * time.Minute).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return r != nil && r.StatusCode() >= http.StatusInternalServerError
		})

	return &CloudinaryUploader{
		client:    client,
		baseURL:   cloudinaryAPIURL,
		cloudName: cloudName,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		prefix:    prefix,
		now:       time.Now,
	}
}

// Upload sends the file as resource type "auto" so images and audio share
// one endpoint
func (u *CloudinaryUploader) Upload(ctx context.Context, localPath, folder string) (string, error) {
	defer removeTemp(localPath)

	folder = path.Join(u.prefix, folder)
	timestamp := strconv.FormatInt(u.now().Unix(), 10)

	var result cloudinaryResponse
	var failure cloudinaryError
	resp, err := u.client.R().
		SetContext(ctx).
		SetFile("file", localPath).
		SetFormData(map[string]string{
			"api_key":   u.apiKey,
			"timestamp": timestamp,
			"folder":    folder,
			"signature": u.sign(map[string]string{"folder": folder, "timestamp": timestamp}),
		}).
		SetResult(&result).
		SetError(&failure).
		Post(fmt.Sprintf("%s/%s/auto/upload", u.baseURL, u.cloudName))

	if err != nil {
		return "", &UploadError{Provider: "cloudinary", Message: "request failed", Err: err}
	}
	if resp.IsError() {
		msg := failure.Error.Message
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode())
		}
		return "", &UploadError{Provider: "cloudinary", Message: msg}
	}
	if result.SecureURL == "" {
		return "", &UploadError{Provider: "cloudinary", Message: "response carried no url"}
	}

	return result.SecureURL, nil
}

// sign computes the api signature: sha1 over the params sorted by key and
// joined as a query string, followed by the secret
func (u *CloudinaryUploader) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + u.apiSecret))
	return hex.EncodeToString(sum[:])
}
