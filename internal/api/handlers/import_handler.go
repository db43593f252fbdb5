package handlers

import (
	"net/http"

	"github.com/adhamcharaf/Optiflow-VF/internal/drive"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type ImportHandler struct {
	importer *drive.Importer
	folders  map[drive.Kind]string
}

// NewImportHandler builds the handler. folders holds the default Drive folder per kind.
func NewImportHandler(importer *drive.Importer, folders map[drive.Kind]string) *ImportHandler {
	return &ImportHandler{importer: importer, folders: folders}
}

type driveImportBody struct {
	FolderID string `json:"folder_id"`
}

func importKind(c *gin.Context) (drive.Kind, bool) {
	kind := drive.Kind(c.Param("kind"))
	if kind != drive.KindSales && kind != drive.KindStock {
		badRequest(c, "kind must be sales or stock")
		return "", false
	}
	return kind, true
}

// UploadFile imports the CSV or XLSX files sent in the "files" form field
func (h *ImportHandler) UploadFile(c *gin.Context) {
	kind, ok := importKind(c)
	if !ok {
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, "invalid form data")
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		badRequest(c, "no files provided")
		return
	}

	results := make([]*drive.ImportResult, 0, len(files))
	for _, file := range files {
		f, err := file.Open()
		if err != nil {
			log.Error().Err(err).Str("filename", file.Filename).Msg("failed to open uploaded file")
			continue
		}
		res, err := h.importer.Import(c.Request.Context(), kind, file.Filename, f)
		f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to import " + file.Filename, "details": err.Error()})
			return
		}
		results = append(results, res)
	}
	c.JSON(http.StatusOK, results)
}

// ImportFromDrive imports every file of a Drive folder, the configured one by default
func (h *ImportHandler) ImportFromDrive(c *gin.Context) {
	kind, ok := importKind(c)
	if !ok {
		return
	}
	var body driveImportBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, "invalid request body")
			return
		}
	}
	folderID := body.FolderID
	if folderID == "" {
		folderID = h.folders[kind]
	}
	if folderID == "" {
		badRequest(c, "folder_id is required")
		return
	}

	results, err := h.importer.ImportFolder(c.Request.Context(), kind, folderID)
	if err != nil {
		log.Error().Err(err).Str("folder_id", folderID).Msg("Drive import failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "drive import failed", "details": err.Error(), "imported": results})
		return
	}
	c.JSON(http.StatusOK, results)
}
