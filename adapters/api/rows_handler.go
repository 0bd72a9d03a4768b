package api

import (
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"sheetflow/adapters/excel"
	"sheetflow/app"
	"sheetflow/domain/sheet"
	"sheetflow/internal"
	apperrors "sheetflow/internal/errors"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var supportedExtensions = map[string]bool{".xlsx": true, ".xlsm": true, ".csv": true}

// RowsHandler exposes the pipeline over HTTP uploads
type RowsHandler struct {
	pipeline *app.PipelineService
	defaults sheet.ReadOptions
	sink     excel.SinkOptions
	logger   *internal.Logger
}

// NewRowsHandler creates a handler reading uploads with defaults unless a query overrides them
func NewRowsHandler(pipeline *app.PipelineService, defaults sheet.ReadOptions, sink excel.SinkOptions, logger *internal.Logger) *RowsHandler {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &RowsHandler{
		pipeline: pipeline,
		defaults: defaults,
		sink:     sink,
		logger:   logger.Named("RowsHandler"),
	}
}

// StreamRows answers an uploaded workbook with one JSON object per row (NDJSON)
func (h *RowsHandler) StreamRows(c *gin.Context) {
	wb, ok := h.openUpload(c)
	if !ok {
		return
	}
	defer wb.Close()

	opts, err := h.readOptions(c, wb)
	if err != nil {
		respondError(c, err)
		return
	}
	rows, err := h.pipeline.Materialize(c.Request.Context(), wb, opts)
	if err != nil {
		respondError(c, err)
		return
	}

	next, stop := iter.Pull2(rows)
	defer stop()

	// the status is still open until the first row arrives
	row, err, more := next()
	if more && err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Type", "application/x-ndjson")
	c.Status(http.StatusOK)
	enc := json.NewEncoder(c.Writer)
	count := 0
	for more {
		if err != nil {
			appErr := apperrors.FromDomain(err)
			h.logger.Warn("stream aborted after %d rows: %v", count, err)
			_ = enc.Encode(gin.H{"error": appErr.Message, "code": appErr.Code})
			return
		}
		if encErr := enc.Encode(row); encErr != nil {
			h.logger.Debug("client went away after %d rows: %v", count, encErr)
			return
		}
		count++
		c.Writer.Flush()
		row, err, more = next()
	}
	h.logger.Debug("streamed %d rows", count)
}

// Convert re-writes an uploaded workbook as XLSX, re-localizing dates to out_time_zone
func (h *RowsHandler) Convert(c *gin.Context) {
	wb, ok := h.openUpload(c)
	if !ok {
		return
	}
	defer wb.Close()

	read, err := h.readOptions(c, wb)
	if err != nil {
		respondError(c, err)
		return
	}
	write := sheet.DefaultWriteOptions()
	if name := c.Query("out_sheet"); name != "" {
		write.SheetName = name
	}
	write.TimeZone = c.Query("out_time_zone")

	// the sink only touches the response on commit, so errors can still be reported
	sink := excel.NewSink(&attachmentWriter{c: c, filename: "converted.xlsx"}, h.sink)
	defer sink.Close()
	result, err := h.pipeline.Convert(c.Request.Context(), wb, sink, read, write)
	if err != nil {
		respondError(c, err)
		return
	}
	h.logger.Debug("converted %d rows into sheet %q", result.Rows, result.SheetName)
}

// openUpload opens the multipart "file" field, answering the request itself on failure
func (h *RowsHandler) openUpload(c *gin.Context) (excel.Workbook, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		respondError(c, apperrors.InvalidInput("multipart field \"file\" is required"))
		return nil, false
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !supportedExtensions[ext] {
		respondError(c, apperrors.UnsupportedMedia(fmt.Sprintf("unsupported file type %q", ext)))
		return nil, false
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, apperrors.Wrap(err, "failed to open upload"))
		return nil, false
	}

	wb, err := excel.OpenReadCloser(file, header.Filename)
	if err != nil {
		respondError(c, &apperrors.AppError{Code: apperrors.CodeInvalidInput, Message: "failed to read workbook", Cause: err})
		return nil, false
	}
	return wb, true
}

// readOptions applies query overrides on top of the handler defaults
func (h *RowsHandler) readOptions(c *gin.Context, wb excel.Workbook) (sheet.ReadOptions, error) {
	opts := h.defaults
	if v := c.Query("sheet"); v != "" {
		opts.SheetName = v
	}
	if v := c.Query("time_zone"); v != "" {
		opts.TimeZone = v
	}
	if v := c.Query("header_row"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return opts, apperrors.InvalidInput("header_row must be a positive integer")
		}
		opts.HeaderRowNumber = n
	}
	if v := c.Query("array_columns"); v != "" {
		opts.ArrayColumns = strings.Split(v, ",")
	}
	if v := c.Query("array_delimiter"); v != "" {
		opts.ArrayDelimiter = v
	}

	bools := []struct {
		name  string
		field *bool
	}{
		{"trim_values", &opts.TrimTextValues},
		{"skip_empty_rows", &opts.SkipEmptyRows},
		{"parse_dates", &opts.ParseDates},
	}
	for _, b := range bools {
		v := c.Query(b.name)
		if v == "" {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return opts, apperrors.InvalidInput(b.name + " must be a boolean")
		}
		*b.field = parsed
	}

	if wb.Date1904() {
		opts.Epoch = sheet.Epoch1904
	}
	return opts, nil
}

// attachmentWriter sets the download headers on the first write
type attachmentWriter struct {
	c        *gin.Context
	filename string
	started  bool
}

func (w *attachmentWriter) Write(p []byte) (int, error) {
	if !w.started {
		w.started = true
		w.c.Header("Content-Type", xlsxContentType)
		w.c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", w.filename))
		w.c.Status(http.StatusOK)
	}
	return w.c.Writer.Write(p)
}

func respondError(c *gin.Context, err error) {
	appErr := apperrors.FromDomain(err)
	c.JSON(apperrors.HTTPStatus(appErr.Code), gin.H{"error": appErr.Message, "code": appErr.Code})
}
