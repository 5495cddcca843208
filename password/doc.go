// Package password hashes and verifies passwords with argon2id.
//
// Hashes are PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<key>
//
// salt and key use unpadded standard base64. [Hasher.NeedsRehash] reports
// hashes made with weaker parameters so callers can re-hash on the next
// successful login.
//
// This package never stores passwords and never logs them.
package password
