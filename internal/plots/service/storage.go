package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ============================================================
// File Storage
// ============================================================

// FileStorage хранит изображения планов: <root>/<ventureID>/plan<ext>.
type FileStorage struct {
	root string
}

func NewFileStorage(root string) *FileStorage {
	return &FileStorage{root: root}
}

func (s *FileStorage) VentureDir(ventureID string) string {
	return filepath.Join(s.root, ventureID)
}

// ImageName: имя файла плана с расширением исходника.
func ImageName(original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	if ext == "" {
		ext = ".img"
	}
	return "plan" + ext
}

func (s *FileStorage) ImagePath(ventureID, name string) string {
	return filepath.Join(s.VentureDir(ventureID), filepath.Base(name))
}

func (s *FileStorage) EnsureDir(ventureID string) error {
	path := s.VentureDir(ventureID)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("mkdir venture dir: %w", err)
	}
	return nil
}

func (s *FileStorage) SaveFile(ventureID, target string, data []byte) error {
	if err := s.EnsureDir(ventureID); err != nil {
		return err
	}
	return os.WriteFile(target, data, 0o644)
}

// RemoveVenture удаляет каталог плана (откат неудачной загрузки).
func (s *FileStorage) RemoveVenture(ventureID string) error {
	return os.RemoveAll(s.VentureDir(ventureID))
}
