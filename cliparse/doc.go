// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles configuration from CLI flags and environment
variables.

Flags win over environment variables; a .env file in the working
directory is loaded first when present. DATABASE_URL and IDENTITY_SALT
are required. The publisher selection (none, redis, kafka) pulls in its
own connection settings only when chosen.
*/
package cliparse
