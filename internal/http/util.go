package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"

	"go.uber.org/zap"
)

// maxBodyBytes 请求体上限
const maxBodyBytes = 1 << 20

const dateLayout = "2006-01-02"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError 按错误类型返回状态码；内部错误只返回通用信息
func writeError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	kind := domain.KindOf(err)
	status, code := statusForKind(kind)
	if kind == domain.KindInternal {
		logger.Error(op+" failed", zap.Error(err))
		writeJSON(w, status, failWithCode(code, "internal error"))
		return
	}
	logger.Debug(op+" rejected", zap.String("error_kind", string(kind)), zap.Error(err))
	writeJSON(w, status, failWithCode(code, err.Error()))
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, failWithCode(ResultInvalidArgument, message))
}

func writeXLSX(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// pathSegments 去掉前缀后按 "/" 切分，忽略空段
func pathSegments(path, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

// splitIDs 逗号分隔的 ID 列表
func splitIDs(s string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseTimeQuery RFC3339 时间参数，required 时缺失报错
func parseTimeQuery(r *http.Request, key string) (time.Time, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return time.Time{}, fmt.Errorf("%s is required: %w", key, domain.ErrInvalidArgument)
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be RFC3339: %w", key, domain.ErrInvalidArgument)
	}
	return t, nil
}

// parseDateQuery yyyy-mm-dd 日期参数，缺失时返回 def
func parseDateQuery(r *http.Request, key string, def *time.Time) (time.Time, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		if def != nil {
			return *def, nil
		}
		return time.Time{}, fmt.Errorf("%s is required: %w", key, domain.ErrInvalidArgument)
	}
	t, err := time.ParseInLocation(dateLayout, v, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be yyyy-mm-dd: %w", key, domain.ErrInvalidArgument)
	}
	return t, nil
}
