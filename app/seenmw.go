// app/seenmw.go
package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"lab_inventory/inventory"
)

// TouchLastSeen records activity at most once per throttle window per user.
func TouchLastSeen(eng *inventory.Engine, rdb *redis.Client, throttle time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetString(CtxUserID)
		if uid == "" {
			c.Next()
			return
		}

		key := "lab:lastseen:" + uid
		if ok, _ := rdb.SetNX(c.Request.Context(), key, "1", throttle).Result(); ok {
			// 忽略错误，不阻塞请求
			if err := eng.TouchUserSeen(c.Request.Context(), uid); err != nil {
				zap.L().Debug("touch last seen failed", zap.String("user", uid), zap.Error(err))
			}
		}
		c.Next()
	}
}
