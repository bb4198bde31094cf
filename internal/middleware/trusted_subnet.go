package middleware

import (
	"net"
	"net/http"
	"strings"
)

// TrustedSubnetMiddleware проверяет IP-адрес клиента против доверенной подсети.
// Выпуск и подпись ключей - чувствительные операции, поэтому сервис может
// быть ограничен внутренней сетью.
func TrustedSubnetMiddleware(trustedSubnet string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if trustedSubnet == "" {
				next.ServeHTTP(w, r)
				return
			}

			// Получаем IP из заголовка X-Real-IP
			realIP := r.Header.Get("X-Real-IP")
			if realIP == "" {
				// Если заголовок X-Real-IP отсутствует, пробуем получить IP из других источников
				realIP = getClientIP(r)
			}

			// Парсим доверенную подсеть
			_, trustedNet, err := net.ParseCIDR(trustedSubnet)
			if err != nil {
				http.Error(w, "Invalid trusted subnet configuration", http.StatusInternalServerError)
				return
			}

			// Парсим IP-адрес клиента
			clientIP := net.ParseIP(realIP)
			if clientIP == nil {
				http.Error(w, "Invalid client IP address", http.StatusBadRequest)
				return
			}

			// Проверяем, входит ли IP в доверенную подсеть
			if !trustedNet.Contains(clientIP) {
				http.Error(w, "Access denied: IP not in trusted subnet", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP извлекает IP-адрес клиента из запроса
func getClientIP(r *http.Request) string {
	// Пробуем X-Forwarded-For
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}

	// Используем RemoteAddr
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
