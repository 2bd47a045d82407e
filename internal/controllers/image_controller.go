package controllers

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"route_mapper/internal/imagecheck"
	"route_mapper/internal/repository"
)

// ImageController handles the image upload endpoint. Validation is run for
// every file before anything is persisted; the batch then succeeds or fails
// as a whole.
type ImageController struct {
	Repo   *repository.Repository
	Policy imagecheck.Policy
}

// Upload accepts a multipart form with a repeatable "images" field.
func (ct *ImageController) Upload(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid point id"})
		return
	}

	if _, err := ct.Repo.GetPoint(id); err != nil {
		respondError(c, err)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}
	files := form.File["images"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no images provided"})
		return
	}

	var details []string
	for _, fh := range files {
		f := imagecheck.File{
			Name:     fh.Filename,
			Size:     fh.Size,
			MIMEType: fh.Header.Get("Content-Type"),
		}
		if ct.Policy.SniffContent {
			head, err := readHead(fh)
			if err != nil {
				details = append(details, "could not read file "+fh.Filename)
				continue
			}
			f.Head = head
		}
		details = append(details, ct.Policy.Check(f)...)
	}
	if len(details) > 0 {
		logrus.WithFields(logrus.Fields{"point_id": id, "violations": len(details)}).
			Warn("UploadImages: validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "file validation failed", "details": details})
		return
	}

	created, err := ct.Repo.StoreImages(id, files)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toImageResponses(created))
}

// readHead returns up to imagecheck.SniffLimit bytes of the payload.
func readHead(fh *multipart.FileHeader) ([]byte, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	head := make([]byte, imagecheck.SniffLimit)
	n, err := io.ReadFull(src, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return head[:n], nil
}
