package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/kozaktomas/smartlock-gate/internal/constants"
	"github.com/kozaktomas/smartlock-gate/internal/imagesrc"
)

var errImageTooLarge = errors.New("image too large")

type imageRequest struct {
	Image string `json:"image"`
}

// readImageSource builds the frame source for a trigger request. It accepts
// a multipart form with an "image" file, a JSON body {"image": "<data url>"},
// or a raw image/* body. An empty body yields a nil source, which makes the
// terminal use its camera.
func readImageSource(r *http.Request) (imagesrc.Source, error) {
	if r.Body == nil || r.ContentLength == 0 {
		return nil, nil
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		mediaType = ""
	}

	switch {
	case mediaType == "multipart/form-data":
		if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
			return nil, fmt.Errorf("parse multipart form: %w", err)
		}
		file, header, err := r.FormFile("image")
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read image field: %w", err)
		}
		defer file.Close()
		data, err := readLimited(file)
		if err != nil {
			return nil, err
		}
		return imagesrc.UploadSource{Data: data, Name: header.Filename}, nil

	case mediaType == "application/json":
		var req imageRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, constants.MaxUploadSize)).Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, nil
			}
			return nil, fmt.Errorf("decode body: %w", err)
		}
		if strings.TrimSpace(req.Image) == "" {
			return nil, nil
		}
		return imagesrc.DataURLSource{URL: req.Image}, nil

	default:
		data, err := readLimited(r.Body)
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			return nil, nil
		}
		return imagesrc.UploadSource{Data: data, Name: "body"}, nil
	}
}

func readLimited(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, constants.MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if n > constants.MaxUploadSize {
		return nil, errImageTooLarge
	}
	return buf.Bytes(), nil
}
