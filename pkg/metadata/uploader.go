// Package metadata uploads token metadata to an off-chain backend, which
// hosts the JSON document referenced by the token's URI.
package metadata

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/post-minter/pkg/metrics"
	"github.com/code-payments/post-minter/pkg/netutil"
)

const (
	DefaultTimeout       = 30 * time.Second
	DefaultImageFilename = "token_image.jpg"

	metricsStructName = "metadata.uploader"
)

var (
	ErrMissingURL = errors.New("response did not include a metadata url")
)

// Image is an optional image attached to the upload.
type Image struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Links are optional social links published alongside the token.
type Links struct {
	Twitter  string
	Website  string
	Telegram string
	PostURL  string
}

type Request struct {
	Name        string
	Symbol      string
	Description string
	Links       Links
	Image       *Image
}

type Uploader struct {
	log        *logrus.Entry
	endpoint   string
	httpClient *http.Client
}

// NewUploader returns an Uploader posting to endpoint.
func NewUploader(endpoint string, timeout time.Duration) *Uploader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Uploader{
		log:        logrus.StandardLogger().WithField("type", "metadata/uploader"),
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Upload posts the metadata as a multipart form and returns the URL of the
// hosted metadata document.
func (u *Uploader) Upload(ctx context.Context, req *Request) (string, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Upload")
	defer tracer.End()

	log := u.log.WithFields(logrus.Fields{
		"method": "Upload",
		"name":   req.Name,
		"symbol": req.Symbol,
	})

	body, contentType, err := encodeForm(req)
	if err != nil {
		tracer.OnError(err)
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, body)
	if err != nil {
		return "", errors.Wrap(err, "error creating http request")
	}
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := u.httpClient.Do(httpReq)
	if err != nil {
		tracer.OnError(err)
		return "", errors.Wrap(err, "error executing http request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "error reading response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err = errors.Errorf("HTTP %d: %s - %s", resp.StatusCode, http.StatusText(resp.StatusCode), string(respBody))
		log.WithError(err).Warn("metadata upload failed")
		tracer.OnError(err)
		return "", err
	}

	var parsed struct {
		MetadataURL string `json:"metadata_url"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", errors.Wrap(err, "error unmarshalling json response")
	}
	if len(parsed.MetadataURL) == 0 {
		return "", ErrMissingURL
	}
	if err := netutil.ValidateHttpUrl(parsed.MetadataURL, false); err != nil {
		return "", errors.Wrapf(err, "invalid metadata url %q", parsed.MetadataURL)
	}

	log.WithField("metadata_url", parsed.MetadataURL).Debug("metadata uploaded")
	return parsed.MetadataURL, nil
}

func encodeForm(req *Request) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct {
		key, value string
		optional   bool
	}{
		{"name", req.Name, false},
		{"symbol", req.Symbol, false},
		{"description", req.Description, false},
		{"twitter", req.Links.Twitter, true},
		{"website", req.Links.Website, true},
		{"telegram", req.Links.Telegram, true},
		{"post_url", req.Links.PostURL, true},
	}
	for _, f := range fields {
		if f.optional && len(f.value) == 0 {
			continue
		}
		if err := w.WriteField(f.key, f.value); err != nil {
			return nil, "", errors.Wrapf(err, "error writing %s field", f.key)
		}
	}

	if req.Image != nil && len(req.Image.Data) > 0 {
		filename := req.Image.Filename
		if len(filename) == 0 {
			filename = DefaultImageFilename
		}
		contentType := req.Image.ContentType
		if len(contentType) == 0 {
			contentType = http.DetectContentType(req.Image.Data)
		}

		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
		header.Set("Content-Type", contentType)

		part, err := w.CreatePart(header)
		if err != nil {
			return nil, "", errors.Wrap(err, "error creating image part")
		}
		if _, err := part.Write(req.Image.Data); err != nil {
			return nil, "", errors.Wrap(err, "error writing image part")
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "error closing multipart writer")
	}

	return &buf, w.FormDataContentType(), nil
}

// ImageFromDataURL decodes a base64 data URL, e.g. "data:image/png;base64,...".
func ImageFromDataURL(dataURL, filename string) (*Image, error) {
	if !strings.HasPrefix(dataURL, "data:") {
		return nil, errors.New("not a data url")
	}

	meta, payload, ok := strings.Cut(strings.TrimPrefix(dataURL, "data:"), ",")
	if !ok {
		return nil, errors.New("data url missing payload")
	}

	contentType, encoding, _ := strings.Cut(meta, ";")
	if encoding != "base64" {
		return nil, errors.Errorf("unsupported data url encoding %q", encoding)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, errors.Wrap(err, "invalid base64 payload")
	}

	return &Image{
		Data:        data,
		Filename:    filename,
		ContentType: contentType,
	}, nil
}
