// Package locals3 is a tiny S3 stand-in that stores objects on the local
// filesystem. It understands just enough path-style S3 for the preview store.
package locals3

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"git.automatex.dev/stem/stemweb/src/logging"
	"git.automatex.dev/stem/stemweb/src/website"
	"github.com/spf13/cobra"
)

func init() {
	s3Command := &cobra.Command{
		Use:   "locals3 [storage folder]",
		Short: "Run a local s3 server that stores in the filesystem",
		Run: func(cmd *cobra.Command, args []string) {
			targetFolder := "./tmp"
			if len(args) > 0 {
				targetFolder = args[0]
			}
			addr, _ := cmd.Flags().GetString("addr")

			logging.Info().Str("addr", addr).Str("folder", targetFolder).Msg("Serving local s3")
			err := http.ListenAndServe(addr, Handler(targetFolder))
			if err != nil {
				logging.Fatal().Err(err).Msg("local s3 server stopped")
			}
		},
	}
	s3Command.Flags().String("addr", "localhost:9003", "Address to listen on")

	website.WebsiteCommand.AddCommand(s3Command)
}

// Handler serves path-style bucket and object requests from folder. Buckets
// are directories and must be created before objects can be put in them.
func Handler(folder string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bucket, key := bucketKey(r)
		logging.Debug().
			Str("method", r.Method).
			Str("bucket", bucket).
			Str("key", key).
			Msg("local s3 request")

		if bucket == "" {
			writeError(w, http.StatusBadRequest, "InvalidBucketName", "no bucket in path")
			return
		}
		bucketDir := filepath.Join(folder, bucket)

		if key == "" {
			switch r.Method {
			case http.MethodPut:
				if err := os.MkdirAll(bucketDir, fs.ModePerm); err != nil {
					writeError(w, http.StatusInternalServerError, "InternalError", err.Error())
					return
				}
				w.Header().Set("Location", fmt.Sprintf("/%s", bucket))
			case http.MethodHead:
				if !exists(bucketDir) {
					w.WriteHeader(http.StatusNotFound)
				}
			default:
				writeError(w, http.StatusNotImplemented, "NotImplemented", "unsupported bucket operation")
			}
			return
		}

		if !exists(bucketDir) {
			writeError(w, http.StatusNotFound, "NoSuchBucket", "The specified bucket does not exist")
			return
		}
		objectPath := filepath.Join(bucketDir, key)

		switch r.Method {
		case http.MethodPut:
			bodyBytes, err := io.ReadAll(r.Body)
			if err != nil {
				writeError(w, http.StatusBadRequest, "IncompleteBody", err.Error())
				return
			}
			if err := os.WriteFile(objectPath, bodyBytes, 0o644); err != nil {
				writeError(w, http.StatusInternalServerError, "InternalError", err.Error())
				return
			}
			if ct := r.Header.Get("Content-Type"); ct != "" {
				_ = os.WriteFile(objectPath+".content-type", []byte(ct), 0o644)
			}
		case http.MethodGet, http.MethodHead:
			fileBytes, err := os.ReadFile(objectPath)
			if errors.Is(err, fs.ErrNotExist) {
				writeError(w, http.StatusNotFound, "NoSuchKey", "The specified key does not exist.")
				return
			} else if err != nil {
				writeError(w, http.StatusInternalServerError, "InternalError", err.Error())
				return
			}
			if ct, err := os.ReadFile(objectPath + ".content-type"); err == nil {
				w.Header().Set("Content-Type", string(ct))
			}
			if r.Method == http.MethodGet {
				w.Write(fileBytes)
			}
		case http.MethodDelete:
			os.Remove(objectPath)
			os.Remove(objectPath + ".content-type")
			w.WriteHeader(http.StatusNoContent)
		default:
			writeError(w, http.StatusNotImplemented, "NotImplemented", "unsupported object operation")
		}
	})
}

func bucketKey(r *http.Request) (string, string) {
	path := strings.TrimPrefix(r.URL.Path, "/")
	slashIdx := strings.IndexByte(path, '/')
	if slashIdx == -1 {
		return path, ""
	}
	return path[:slashIdx], strings.ReplaceAll(path[slashIdx+1:], "/", "~")
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

type s3Error struct {
	XMLName xml.Name `xml:"Error"`
	Code    string   `xml:"Code"`
	Message string   `xml:"Message"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	xml.NewEncoder(w).Encode(s3Error{Code: code, Message: msg})
}
