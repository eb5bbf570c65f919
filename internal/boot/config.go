package boot

import (
	"errors"
	"io/fs"
	"os"

	"lc2gh/pkg/config"
	"lc2gh/pkg/logger"
)

// InitConfig 初始化配置，配置文件不存在时使用默认值
func InitConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		logger.Warn("config file %s not found, using defaults", path)
		cfg := config.Default()
		return cfg, cfg.Validate()
	}
	return config.LoadConfig(path)
}
