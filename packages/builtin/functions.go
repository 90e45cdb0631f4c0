package builtin

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/url"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Func computes a value from already unquoted arguments.
type Func func(args []string) (string, error)

type Registry struct {
	funcs map[string]Func
}

func NewRegistry() *Registry {
	r := &Registry{
		funcs: make(map[string]Func),
	}
	r.registerDefaults()
	return r
}

func (r *Registry) registerDefaults() {
	r.funcs["uuid"] = funcUUID
	r.funcs["now"] = funcNow
	r.funcs["date"] = funcDate
	r.funcs["timestamp"] = funcTimestamp
	r.funcs["timestampMs"] = funcTimestampMs
	r.funcs["random"] = funcRandom
	r.funcs["randomString"] = funcRandomString
	r.funcs["base64"] = funcBase64
	r.funcs["base64Decode"] = funcBase64Decode
	r.funcs["sha256"] = funcSHA256
	r.funcs["urlEncode"] = funcURLEncode
	r.funcs["jsonEscape"] = funcJSONEscape
	r.funcs["env"] = funcEnv
}

func (r *Registry) Register(name string, fn Func) {
	r.funcs[name] = fn
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var funcCallPattern = regexp.MustCompile(`^(\w+)\((.*)\)$`)

// Call evaluates an expression such as randomString(8). ok is false when expr
// is not a call to a registered function.
func (r *Registry) Call(expr string) (value string, ok bool, err error) {
	matches := funcCallPattern.FindStringSubmatch(strings.TrimSpace(expr))
	if matches == nil {
		return "", false, nil
	}

	fn, found := r.funcs[matches[1]]
	if !found {
		return "", false, nil
	}

	var args []string
	if matches[2] != "" {
		args = parseArgs(matches[2])
	}

	value, err = fn(args)
	if err != nil {
		return "", true, fmt.Errorf("%s(): %w", matches[1], err)
	}
	return value, true, nil
}

func parseArgs(s string) []string {
	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := byte(0)

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if !inQuote && (ch == '"' || ch == '\'') {
			inQuote = true
			quoteChar = ch
		} else if inQuote && ch == quoteChar {
			inQuote = false
			quoteChar = 0
		} else if !inQuote && ch == ',' {
			args = append(args, strings.TrimSpace(current.String()))
			current.Reset()
		} else {
			current.WriteByte(ch)
		}
	}

	if current.Len() > 0 {
		args = append(args, strings.TrimSpace(current.String()))
	}

	return args
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func intArg(args []string, i, defaultVal int) (int, error) {
	if i >= len(args) {
		return defaultVal, nil
	}
	v, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("argument %d: %q is not an integer", i+1, args[i])
	}
	return v, nil
}

func funcUUID(_ []string) (string, error) {
	return uuid.NewString(), nil
}

func funcNow(_ []string) (string, error) {
	return time.Now().UTC().Format(time.RFC3339), nil
}

func funcDate(args []string) (string, error) {
	format := "2006-01-02"
	if len(args) >= 1 {
		format = args[0]
	}
	return time.Now().UTC().Format(format), nil
}

func funcTimestamp(_ []string) (string, error) {
	return strconv.FormatInt(time.Now().Unix(), 10), nil
}

func funcTimestampMs(_ []string) (string, error) {
	return strconv.FormatInt(time.Now().UnixMilli(), 10), nil
}

func funcRandom(args []string) (string, error) {
	lo, err := intArg(args, 0, 0)
	if err != nil {
		return "", err
	}
	hi, err := intArg(args, 1, 100)
	if err != nil {
		return "", err
	}
	if hi < lo {
		return "", fmt.Errorf("max %d is below min %d", hi, lo)
	}
	return strconv.Itoa(rand.Intn(hi-lo+1) + lo), nil
}

func funcRandomString(args []string) (string, error) {
	length, err := intArg(args, 0, 16)
	if err != nil {
		return "", err
	}
	if length < 0 {
		return "", fmt.Errorf("negative length %d", length)
	}
	return randomString(length, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"), nil
}

func funcBase64(args []string) (string, error) {
	return base64.StdEncoding.EncodeToString([]byte(arg(args, 0))), nil
}

func funcBase64Decode(args []string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(arg(args, 0))
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

func funcSHA256(args []string) (string, error) {
	hash := sha256.Sum256([]byte(arg(args, 0)))
	return hex.EncodeToString(hash[:]), nil
}

func funcURLEncode(args []string) (string, error) {
	return url.QueryEscape(arg(args, 0)), nil
}

// funcJSONEscape returns its argument encoded as the inside of a JSON string.
func funcJSONEscape(args []string) (string, error) {
	b, err := json.Marshal(arg(args, 0))
	if err != nil {
		return "", err
	}
	return string(b[1 : len(b)-1]), nil
}

func funcEnv(args []string) (string, error) {
	name := arg(args, 0)
	if name == "" {
		return "", fmt.Errorf("missing variable name")
	}
	val, ok := os.LookupEnv(name)
	if !ok {
		if len(args) >= 2 {
			return args[1], nil
		}
		return "", fmt.Errorf("%s is not set", name)
	}
	return val, nil
}

func randomString(length int, charset string) string {
	result := make([]byte, length)
	for i := 0; i < length; i++ {
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}
