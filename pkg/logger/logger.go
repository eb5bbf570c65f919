package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

var (
	debugColor   = color.New(color.FgHiBlue)
	infoColor    = color.New(color.FgHiCyan)
	warningColor = color.New(color.FgHiYellow)
	errorColor   = color.New(color.FgHiRed)
	fatalColor   = color.New(color.FgHiRed, color.Bold)
	prefixColor  = color.New(color.FgHiBlue)
)

type rule struct {
	pattern string
	color   *color.Color
}

// 高亮规则，按顺序组成一个大正则
var highlightRules = []rule{
	// 错误相关
	{`(?i)\b(error|panic|rejected|unauthorized)\b`, color.New(color.FgHiRed)},
	{`(?i)\b(failed|fail)\b`, color.New(color.FgRed)},

	// HTTP状态码
	{`\b([45]\d{2})\b`, color.New(color.FgHiRed)},
	{`\b(2\d{2})\b`, color.New(color.FgHiGreen)},

	// HTTP方法
	{`\b(GET|POST|PUT|DELETE|PATCH|OPTIONS)\b`, color.New(color.FgBlue)},

	// UUID（幂等键、设备ID）
	{`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`, color.New(color.FgHiMagenta)},

	// 指纹（sha256 hex 的短前缀）
	{`\bfp=[0-9a-f]{8,64}\b`, color.New(color.FgMagenta)},

	// 题目 slug
	{`\bslug=[a-z0-9-]+`, color.New(color.FgHiGreen)},

	// 脱敏后的令牌
	{`[A-Za-z0-9_-]{8}\.\.\.[A-Za-z0-9_-]{4}`, color.New(color.FgYellow)},

	// 键值对
	{`([a-zA-Z_][a-zA-Z0-9_]*=)`, color.New(color.FgHiCyan)},

	// 状态关键词
	{`(?i)\b(accepted|submitted|refreshed|linked|connected|started)\b`, color.New(color.FgHiCyan)},
	{`(?i)\b(duplicate|skipped|stale|warn)\b`, color.New(color.FgHiYellow)},

	// 方括号内容
	{`\[(.*?)\]`, color.New(color.FgBlue)},
}

var (
	combinedRegex *regexp.Regexp
	colorMap      []*color.Color
)

// output 日志最终输出目标，测试中可替换
var (
	outputMu sync.Mutex
	output   io.Writer = os.Stdout
)

var builderPool = sync.Pool{
	New: func() interface{} {
		return new(strings.Builder)
	},
}

// colorWriter 为标准库 logger 的输出目标
type colorWriter struct{}

// Write 实现 io.Writer 接口
func (cw *colorWriter) Write(p []byte) (int, error) {
	return writeWithColor(p)
}

// writeWithColor 生成前缀（时间、文件、行号、级别）并对正文着色
func writeWithColor(bytes []byte) (int, error) {
	// 调用栈层级：logger.X -> log.Printf -> Logger.output -> colorWriter.Write -> writeWithColor
	_, file, line, ok := runtime.Caller(5)
	if !ok {
		file = "???"
		line = 0
	}
	file = filepath.Base(file)
	now := time.Now().Format("2006/01/02 15:04:05.000")

	sb := builderPool.Get().(*strings.Builder)
	defer builderPool.Put(sb)
	sb.Reset()

	msg := string(bytes)
	levelColor, levelTag := detectLevel(msg)
	if levelTag != "" {
		msg = strings.Replace(msg, levelTag, "", 1)
	}
	msg = strings.TrimSpace(msg)

	sb.WriteString(prefixColor.Sprint(fmt.Sprintf("%s %s:%d", now, file, line)))
	sb.WriteByte(' ')
	if levelTag != "" {
		sb.WriteString(levelColor.Sprint(levelTag))
		sb.WriteByte(' ')
	}
	sb.WriteString(highlightMessage(msg))
	sb.WriteByte('\n')

	outputMu.Lock()
	_, _ = io.WriteString(output, sb.String())
	outputMu.Unlock()

	return len(bytes), nil
}

// detectLevel 根据级别标记选择颜色
func detectLevel(msg string) (*color.Color, string) {
	switch {
	case strings.HasPrefix(msg, "[DEBUG]"):
		return debugColor, "[DEBUG]"
	case strings.HasPrefix(msg, "[INFO]"):
		return infoColor, "[INFO]"
	case strings.HasPrefix(msg, "[WARN]"):
		return warningColor, "[WARN]"
	case strings.HasPrefix(msg, "[ERROR]"):
		return errorColor, "[ERROR]"
	case strings.HasPrefix(msg, "[FATAL]"):
		return fatalColor, "[FATAL]"
	default:
		return infoColor, ""
	}
}

// highlightMessage 用大正则找出所有命中的捕获组，再按区间着色
func highlightMessage(msg string) string {
	matches := combinedRegex.FindAllStringSubmatchIndex(msg, -1)
	if len(matches) == 0 {
		return msg
	}

	type interval struct {
		start int
		end   int
		color *color.Color
	}
	var intervals []interval

	for _, m := range matches {
		// m[0:2] 为整体匹配，m[2:4] 为最外层分组，规则分组从 m[4] 开始
		for i := 0; i < len(colorMap); i++ {
			idx := 4 + 2*i
			if idx+1 >= len(m) {
				break
			}
			start, end := m[idx], m[idx+1]
			if start >= 0 && end >= 0 && end <= len(msg) {
				intervals = append(intervals, interval{start: start, end: end, color: colorMap[i]})
				break
			}
		}
	}
	if len(intervals) == 0 {
		return msg
	}

	sort.Slice(intervals, func(i, j int) bool {
		return intervals[i].start < intervals[j].start
	})

	var result strings.Builder
	result.Grow(len(msg))
	cur := 0
	for _, iv := range intervals {
		if iv.start < cur {
			continue
		}
		if iv.start > cur {
			result.WriteString(msg[cur:iv.start])
		}
		result.WriteString(iv.color.Sprint(msg[iv.start:iv.end]))
		cur = iv.end
	}
	if cur < len(msg) {
		result.WriteString(msg[cur:])
	}
	return result.String()
}

func init() {
	var sb strings.Builder
	sb.Grow(512)

	colorMap = make([]*color.Color, 0, len(highlightRules))
	sb.WriteByte('(')
	for i, r := range highlightRules {
		if i > 0 {
			sb.WriteByte('|')
		}
		// 规则内部的分组改为非捕获，保证分组下标与 colorMap 一一对应
		sb.WriteString("(")
		sb.WriteString(nonCapturing(r.pattern))
		sb.WriteString(")")
		colorMap = append(colorMap, r.color)
	}
	sb.WriteByte(')')

	combinedRegex = regexp.MustCompile(sb.String())

	log.SetOutput(&colorWriter{})
	log.SetFlags(0)
}

// nonCapturing 把规则里的捕获组 "(" 改写为 "(?:"
func nonCapturing(pattern string) string {
	var b strings.Builder
	b.Grow(len(pattern) + 8)
	escaped := false
	inClass := false
	for i := 0; i < len(pattern); i++ {
		ch := pattern[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\':
			escaped = true
		case ch == '[':
			inClass = true
		case ch == ']':
			inClass = false
		case ch == '(' && !inClass && (i+1 >= len(pattern) || pattern[i+1] != '?'):
			b.WriteString("(?:")
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}

// SetOutput 替换日志输出目标，返回原目标
func SetOutput(w io.Writer) io.Writer {
	outputMu.Lock()
	defer outputMu.Unlock()
	prev := output
	output = w
	return prev
}

// MaskToken 脱敏令牌，只保留首尾
func MaskToken(token string) string {
	if len(token) <= 12 {
		return "***"
	}
	return token[:8] + "..." + token[len(token)-4:]
}

func Debug(format string, v ...interface{}) {
	log.Printf("[DEBUG] "+format, v...)
}

func Info(format string, v ...interface{}) {
	log.Printf("[INFO] "+format, v...)
}

func Warn(format string, v ...interface{}) {
	log.Printf("[WARN] "+format, v...)
}

func Error(format string, v ...interface{}) {
	log.Printf("[ERROR] "+format, v...)
}

func Fatal(format string, v ...interface{}) {
	log.Printf("[FATAL] "+format, v...)
	os.Exit(1)
}
