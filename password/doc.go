// Package password holds the password strength policy and the hashers used to
// store credentials.
//
// Argon2id is the default hasher. Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Bcrypt] is available for deployments that already store bcrypt hashes.
// Neither hasher enforces strength rules; that is [IsStrong]'s job.
package password
