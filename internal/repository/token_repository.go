package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"internship-auth/config"
	"internship-auth/internal/model"
	"internship-auth/internal/util"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	revokedPrefix       = "auth:revoked:"
	refreshPrefix       = "auth:refresh:"
	gracePrefix         = "auth:refresh:grace:"
	familyPrefix        = "auth:family:"
	revokedFamilyPrefix = "auth:family:revoked:"
)

// saveRefreshScript сохраняет запись и добавляет её в семейство,
// если семейство не было отозвано.
// KEYS: запись, семейство, tombstone семейства. ARGV: ttl (мс), principal, roles, family, хэш токена
var saveRefreshScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[3]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1], 'principal', ARGV[2], 'roles', ARGV[3], 'family', ARGV[4], 'used', '0')
redis.call('PEXPIRE', KEYS[1], ARGV[1])
redis.call('SADD', KEYS[2], ARGV[5])
redis.call('PEXPIRE', KEYS[2], ARGV[1])
return 1
`)

// markUsedScript : compare-and-swap флага used.
// KEYS: запись, grace-ключ. ARGV: grace (мс)
var markUsedScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'used') ~= '0' then
	return 0
end
redis.call('HSET', KEYS[1], 'used', '1')
redis.call('SET', KEYS[2], '1', 'PX', ARGV[1])
return 1
`)

// revokeFamilyScript удаляет все записи семейства и ставит tombstone.
// KEYS: семейство, tombstone. ARGV: ttl tombstone (мс), префикс записей, префикс grace-ключей
var revokeFamilyScript = redis.NewScript(`
local members = redis.call('SMEMBERS', KEYS[1])
for _, member in ipairs(members) do
	redis.call('DEL', ARGV[2] .. member, ARGV[3] .. member)
end
redis.call('DEL', KEYS[1])
redis.call('SET', KEYS[2], '1', 'PX', ARGV[1])
return #members
`)

// TokenRepository : refresh-токены, семейства и blocklist jti в Redis
type TokenRepository struct {
	client *config.RedisClient
}

func NewTokenRepository(rdb *config.RedisClient) *TokenRepository {
	return &TokenRepository{rdb}
}

// SaveRefreshToken сохраняет запись refresh-токена с used=false и продлевает семейство до ttl.
// Возвращает model.ErrFamilyRevoked, если семейство уже отозвано
func (r *TokenRepository) SaveRefreshToken(ctx context.Context, token string, record *model.RefreshTokenRecord, ttl time.Duration) error {
	roles, err := json.Marshal(record.Roles)
	if err != nil {
		return util.LogError("[TokenRepo] ошибка сериализации ролей", err)
	}

	ctx, cancel := r.client.WithTimeout(ctx)
	defer cancel()

	hash := util.HashToken(token)
	keys := []string{r.refreshKey(hash), r.familyKey(record.FamilyID), r.revokedFamilyKey(record.FamilyID)}
	saved, err := saveRefreshScript.Run(ctx, r.client.Client, keys,
		ttl.Milliseconds(), record.PrincipalID, string(roles), record.FamilyID, hash).Int()
	if err != nil {
		return util.LogError("[TokenRepo] ошибка сохранения refresh-токена в Redis", err)
	}
	if saved == 0 {
		return model.ErrFamilyRevoked
	}

	return nil
}

// FindRefreshToken ищет запись по значению токена.
// Возвращает nil, nil если токена нет (не существовал, истек или отозван)
func (r *TokenRepository) FindRefreshToken(ctx context.Context, token string) (*model.RefreshTokenRecord, error) {
	ctx, cancel := r.client.WithTimeout(ctx)
	defer cancel()

	fields, err := r.client.Client.HGetAll(ctx, r.refreshKey(util.HashToken(token))).Result()
	if err != nil {
		return nil, util.LogError("[TokenRepo] ошибка получения refresh-токена из Redis", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	record := &model.RefreshTokenRecord{
		PrincipalID: fields["principal"],
		FamilyID:    fields["family"],
		Used:        fields["used"] == "1",
	}
	if err := json.Unmarshal([]byte(fields["roles"]), &record.Roles); err != nil {
		return nil, util.LogError("[TokenRepo] ошибка десериализации ролей", err)
	}

	return record, nil
}

// MarkRefreshTokenUsed атомарно меняет used с false на true и открывает grace-окно.
// false означает, что токен уже был использован или не существует
func (r *TokenRepository) MarkRefreshTokenUsed(ctx context.Context, token string, grace time.Duration) (bool, error) {
	ctx, cancel := r.client.WithTimeout(ctx)
	defer cancel()

	hash := util.HashToken(token)
	marked, err := markUsedScript.Run(ctx, r.client.Client,
		[]string{r.refreshKey(hash), r.graceKey(hash)}, grace.Milliseconds()).Int()
	if err != nil {
		return false, util.LogError("[TokenRepo] не удалось пометить refresh-токен использованным", err)
	}

	return marked == 1, nil
}

// InGracePeriod проверяет, что токен был использован не раньше чем grace назад
func (r *TokenRepository) InGracePeriod(ctx context.Context, token string) (bool, error) {
	ctx, cancel := r.client.WithTimeout(ctx)
	defer cancel()

	n, err := r.client.Client.Exists(ctx, r.graceKey(util.HashToken(token))).Result()
	if err != nil {
		return false, util.LogError("[TokenRepo] ошибка проверки grace-периода", err)
	}
	return n == 1, nil
}

// RevokeFamily удаляет все токены семейства. Отзыв окончательный:
// tombstone живет ttl и не дает сохранить в семейство новые токены
func (r *TokenRepository) RevokeFamily(ctx context.Context, familyID string, ttl time.Duration) error {
	ctx, cancel := r.client.WithTimeout(ctx)
	defer cancel()

	keys := []string{r.familyKey(familyID), r.revokedFamilyKey(familyID)}
	if err := revokeFamilyScript.Run(ctx, r.client.Client, keys,
		ttl.Milliseconds(), refreshPrefix, gracePrefix).Err(); err != nil {
		return util.LogError("[TokenRepo] ошибка отзыва семейства refresh-токенов", err)
	}
	return nil
}

func (r *TokenRepository) DeleteRefreshToken(ctx context.Context, token string) error {
	ctx, cancel := r.client.WithTimeout(ctx)
	defer cancel()

	hash := util.HashToken(token)
	if err := r.client.Client.Del(ctx, r.refreshKey(hash), r.graceKey(hash)).Err(); err != nil {
		return util.LogError("[TokenRepo] ошибка удаления refresh-токена из Redis", err)
	}
	return nil
}

// RevokeAccessToken добавляет jti в blocklist на оставшееся время жизни токена
func (r *TokenRepository) RevokeAccessToken(ctx context.Context, jti string, ttl time.Duration) error {
	ctx, cancel := r.client.WithTimeout(ctx)
	defer cancel()

	if err := r.client.Client.Set(ctx, r.revokedKey(jti), "1", ttl).Err(); err != nil {
		return util.LogError("[TokenRepo] ошибка записи jti в blocklist", err)
	}
	return nil
}

func (r *TokenRepository) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	ctx, cancel := r.client.WithTimeout(ctx)
	defer cancel()

	n, err := r.client.Client.Exists(ctx, r.revokedKey(jti)).Result()
	if err != nil {
		return false, util.LogError("[TokenRepo] ошибка проверки blocklist", err)
	}
	return n == 1, nil
}

func (r *TokenRepository) refreshKey(hash string) string {
	return fmt.Sprintf("%s%s", refreshPrefix, hash)
}

func (r *TokenRepository) graceKey(hash string) string {
	return fmt.Sprintf("%s%s", gracePrefix, hash)
}

func (r *TokenRepository) familyKey(familyID string) string {
	return fmt.Sprintf("%s%s", familyPrefix, familyID)
}

func (r *TokenRepository) revokedFamilyKey(familyID string) string {
	return fmt.Sprintf("%s%s", revokedFamilyPrefix, familyID)
}

func (r *TokenRepository) revokedKey(jti string) string {
	return fmt.Sprintf("%s%s", revokedPrefix, jti)
}
