package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	uploadDto "anoa.com/notifiq/internal/modules/upload/dto"
	upload "anoa.com/notifiq/internal/modules/upload/service"
	"anoa.com/notifiq/pkg/response"
	"github.com/gin-gonic/gin"
)

// bodyLimit leaves room for the multipart envelope around a full-size image.
const bodyLimit = upload.MaxImageSize + (1 << 20)

const errTooLarge = "file exceeds the 50MB limit"

type UploadHandler struct {
	service upload.UploadService
}

func NewUploadHandler(service upload.UploadService) *UploadHandler {
	return &UploadHandler{service: service}
}

func (h *UploadHandler) UploadImage(c *gin.Context) {
	if c.Request.ContentLength > bodyLimit {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": errTooLarge})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, bodyLimit)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": errTooLarge})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	viewer, err := response.GetViewer(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	contentType, err := sniff(fileHeader)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}

	file := upload.ImageFile{
		Name:        fileHeader.Filename,
		Size:        fileHeader.Size,
		ContentType: contentType,
		Open: func() (io.ReadCloser, error) {
			return fileHeader.Open()
		},
	}

	img, err := h.service.Upload(c.Request.Context(), viewer.ID, file, nil)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, uploadDto.UploadResponse{URL: img.URL, Name: img.Name})
}

func sniff(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	return upload.DetectContentType(f)
}
