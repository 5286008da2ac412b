package constants

import "time"

var SourceConfig = struct {
	DefaultURL     string
	CacheBustParam string
	Timeout        time.Duration
	UserAgent      string
	MaxBodyBytes   int64
}{
	DefaultURL:     "https://raw.githubusercontent.com/nedoramoteris/famousscale/refs/heads/main/famousscale.txt",
	CacheBustParam: "t",
	Timeout:        15 * time.Second,
	UserAgent:      "Mozilla/5.0 (compatible; famescale/1.0)",
	MaxBodyBytes:   8 << 20, // 8 MiB
}

var CacheConfig = struct {
	DefaultSlot string
}{
	DefaultSlot: "cachedFameData",
}

var CircuitBreakerConfig = struct {
	FailureThreshold int
	ResetTimeout     time.Duration
}{
	FailureThreshold: 3,                // consecutive failures before OPEN
	ResetTimeout:     30 * time.Second, // time spent OPEN before a trial call
}

var NoticeConfig = struct {
	FetchFailed string
	Duration    time.Duration
}{
	FetchFailed: "Failed to load fame data. Using cached version.",
	Duration:    5 * time.Second, // front end auto-dismiss
}

var ServerConfig = struct {
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	WriteWait         time.Duration
	PingInterval      time.Duration
	PongWait          time.Duration
	BroadcastWorkers  int
}{
	ReadHeaderTimeout: 10 * time.Second,
	ShutdownTimeout:   10 * time.Second,
	WriteWait:         10 * time.Second,
	PingInterval:      30 * time.Second,
	PongWait:          60 * time.Second,
	BroadcastWorkers:  8,
}

var PlaceholderConfig = struct {
	BaseURL    string
	Background string
	Foreground string
	CardSize   int
	ListSize   int
}{
	BaseURL:    "https://via.placeholder.com",
	Background: "292725",
	Foreground: "6E6761",
	CardSize:   40,
	ListSize:   50,
}

var StringLimits = struct {
	Description int
}{
	Description: 120,
}
