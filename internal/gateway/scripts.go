package gateway

// Lua scripts for atomic stream bookkeeping.

const (
	// processWithIdempotencyLua: idempotency check + processing mark
	// KEYS[1]: idempotency key
	// KEYS[2]: stream key
	// ARGV[1]: consumer group
	// ARGV[2]: entry ID
	// ARGV[3]: processing TTL in seconds
	// Returns: 1 to process, 0 when already completed (ACK'd here), -1 while another consumer holds it
	processWithIdempotencyLua = `
		local idempotency_key = KEYS[1]
		local stream_key = KEYS[2]
		local group = ARGV[1]
		local entry_id = ARGV[2]
		local ttl = tonumber(ARGV[3])

		local state = redis.call('GET', idempotency_key)
		if state == 'completed' then
			redis.call('XACK', stream_key, group, entry_id)
			return 0
		end
		if state == 'processing' then
			return -1
		end

		redis.call('SETEX', idempotency_key, ttl, 'processing')
		return 1
	`

	// completeProcessingLua: completion mark + ACK
	// KEYS[1]: idempotency key
	// KEYS[2]: stream key
	// ARGV[1]: consumer group
	// ARGV[2]: entry ID
	// ARGV[3]: retention TTL in seconds
	completeProcessingLua = `
		local idempotency_key = KEYS[1]
		local stream_key = KEYS[2]
		local group = ARGV[1]
		local entry_id = ARGV[2]
		local ttl = tonumber(ARGV[3])

		redis.call('SETEX', idempotency_key, ttl, 'completed')
		redis.call('XACK', stream_key, group, entry_id)
		return 1
	`
)
