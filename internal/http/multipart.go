package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"reflect"
	"sort"

	"github.com/fivetwenty-io/sensei-partner/internal/constants"
)

// Multipart describes a file upload. The file goes out as one part named
// FieldName; every entry of Fields becomes an extra form part.
type Multipart struct {
	FieldName string
	FilePath  string
	Fields    map[string]any
}

// encode buffers the whole form so that a retry can send it again.
func (m *Multipart) encode() ([]byte, string, error) {
	file, err := os.Open(filepath.Clean(m.FilePath))
	if err != nil {
		return nil, "", fmt.Errorf("failed to open upload file: %w", err)
	}

	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return nil, "", fmt.Errorf("failed to stat upload file: %w", err)
	}

	if !info.Mode().IsRegular() {
		return nil, "", fmt.Errorf("%w: %s", constants.ErrNotRegularFile, m.FilePath)
	}

	fieldName := m.FieldName
	if fieldName == "" {
		fieldName = constants.DefaultUploadField
	}

	var buf bytes.Buffer

	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile(fieldName, filepath.Base(m.FilePath))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create file part: %w", err)
	}

	_, err = io.Copy(part, file)
	if err != nil {
		return nil, "", fmt.Errorf("failed to copy upload file: %w", err)
	}

	names := make([]string, 0, len(m.Fields))
	for name := range m.Fields {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		value, err := fieldValue(m.Fields[name])
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode field %s: %w", name, err)
		}

		err = writer.WriteField(name, value)
		if err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", name, err)
		}
	}

	err = writer.Close()
	if err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}

	return buf.Bytes(), writer.FormDataContentType(), nil
}

// fieldValue renders scalars with fmt and structured values as JSON.
func fieldValue(value any) (string, error) {
	if value == nil {
		return "", nil
	}

	switch reflect.ValueOf(value).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		data, err := json.Marshal(value)
		if err != nil {
			return "", fmt.Errorf("marshaling field: %w", err)
		}

		return string(data), nil
	default:
		return fmt.Sprint(value), nil
	}
}
