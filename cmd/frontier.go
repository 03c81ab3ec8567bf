package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// readFrontier loads product URLs from a file, one per line. Blank
// lines and #-comments are skipped.
func readFrontier(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frontier file: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read frontier file: %w", err)
	}
	return urls, nil
}

// writeFrontier persists product URLs, one per line, so a later harvest
// run can skip discovery.
func writeFrontier(path string, urls []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create frontier file: %w", err)
	}
	w := bufio.NewWriter(f)
	for _, u := range urls {
		if _, err := fmt.Fprintln(w, u); err != nil {
			f.Close()
			return fmt.Errorf("write frontier file: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush frontier file: %w", err)
	}
	return f.Close()
}
