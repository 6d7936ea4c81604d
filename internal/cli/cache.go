package cli

import (
	"fmt"

	"github.com/seutils/seu/internal/cache"
)

// CacheDump writes the cache to a tarball and prints where.
func CacheDump(env *Env, store *cache.Store, dst string) error {
	if dst == "" {
		dst = "seu-cache"
	}
	written, err := store.Dump(dst, false)
	if err != nil {
		return err
	}
	fmt.Fprintln(env.Out, written)
	return nil
}

// CacheStats prints one line per subcache.
func CacheStats(env *Env, store *cache.Store) error {
	stats, err := store.Stats()
	if err != nil {
		return err
	}
	fmt.Fprintf(env.Out, "cache: %s\n", store.Dir())
	if len(stats) == 0 {
		fmt.Fprintln(env.Out, env.styles().Muted.Render("(empty)"))
		return nil
	}
	for _, st := range stats {
		fmt.Fprintf(env.Out, "%-14s %6d  %s\n", st.Name, st.Entries, st.LastWrite.Format("2006-01-02 15:04"))
	}
	return nil
}
