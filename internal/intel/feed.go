package intel

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Intelligence — срез фида для внешних потребителей (REST, отладка).
type Intelligence struct {
	Signatures  []string  `json:"signatures"`
	IPs         []string  `json:"ips"`
	Domains     []string  `json:"domains"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Feed — реестр threat intelligence. Источник репутации для извлечения
// признаков: адрес из черного списка роняет оценку источника в пол.
// Работает автономно на встроенном сиде; при настроенном Redis
// дополнительно слушает канал сигналов и переживает переподключения.
type Feed struct {
	mu          sync.RWMutex
	badIPs      map[string]struct{}
	signatures  []string
	domains     []string
	lastUpdated time.Time
	logger      *zap.Logger
}

func NewFeed(logger *zap.Logger) *Feed {
	f := &Feed{
		badIPs: make(map[string]struct{}),
		logger: logger.Named("intel"),
	}
	f.seed()
	return f
}

// seed — статический набор известных сигнатур и адресов,
// чтобы скоринг имел опору до первого обновления фида.
func (f *Feed) seed() {
	f.signatures = []string{
		"MALWARE_SIGNATURE_1",
		"EXPLOIT_KIT_ANGLER",
		"RANSOMWARE_LOCKY",
		"TROJAN_EMOTET",
	}
	f.domains = []string{
		"malicious-domain.com",
		"phishing-site.net",
		"c2-server.org",
	}
	for _, ip := range []string{"192.168.1.100", "10.0.0.50", "203.0.113.1", "198.51.100.1"} {
		f.badIPs[ip] = struct{}{}
	}
	f.lastUpdated = time.Now()
}

// IsKnownBad проверяет источник по черному списку.
func (f *Feed) IsKnownBad(ip string) bool {
	// Отрезаем порт, если источник пришел как host:port
	if i := strings.LastIndex(ip, ":"); i > 0 {
		ip = ip[:i]
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, bad := f.badIPs[ip]
	return bad
}

func (f *Feed) AddIPs(ips ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ip := range ips {
		if ip == "" {
			continue
		}
		f.badIPs[ip] = struct{}{}
	}
	f.lastUpdated = time.Now()
}

func (f *Feed) Snapshot() Intelligence {
	f.mu.RLock()
	defer f.mu.RUnlock()
	ips := make([]string, 0, len(f.badIPs))
	for ip := range f.badIPs {
		ips = append(ips, ip)
	}
	return Intelligence{
		Signatures:  append([]string(nil), f.signatures...),
		IPs:         ips,
		Domains:     append([]string(nil), f.domains...),
		LastUpdated: f.lastUpdated,
	}
}

// Listen — «живучая» подписка на сигналы фида: при каждом успешном
// коннекте синхронизируется с множеством в Redis (целиком), дальше
// дослушивает точечные добавления из pub/sub. Обрыв соединения ведет
// к переподключению, ядро при этом продолжает работать на текущем
// состоянии реестра.
func (f *Feed) Listen(ctx context.Context, rdb *redis.Client, channel, setKey string) {
	for {
		pubsub := rdb.Subscribe(ctx, channel)

		// Проверка успешности подписки
		if _, err := pubsub.Receive(ctx); err != nil {
			pubsub.Close()
			f.logger.Error("failed to subscribe", zap.String("chan", channel), zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		// Синхронизация полного множества при каждом успешном коннекте
		if ips, err := rdb.SMembers(ctx, setKey).Result(); err != nil {
			f.logger.Error("intel sync failed on reconnect", zap.Error(err))
		} else if len(ips) > 0 {
			f.AddIPs(ips...)
			f.logger.Info("intel feed synced", zap.Int("known_bad_ips", len(ips)))
		}

		ch := pubsub.Channel()

	loop:
		for {
			select {
			case <-ctx.Done():
				pubsub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break loop // Канал закрыт, идем на переподключение
				}
				ip := strings.TrimSpace(msg.Payload)
				if ip == "" {
					f.logger.Error("invalid intel signal", zap.String("payload", msg.Payload))
					continue
				}
				f.AddIPs(ip)
			}
		}

		pubsub.Close()
		time.Sleep(1 * time.Second)
	}
}
