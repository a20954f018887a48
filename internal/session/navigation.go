package session

import (
	"context"

	"github.com/mvp-joe/javalens/internal/navigation"
)

// JumpDeclaration locates the declaration of symbol at (line, column) in
// path. On success the origin, exactly as given, is pushed onto the jump
// history.
func (s *Session) JumpDeclaration(ctx context.Context, path string, line, column int, symbol string) (navigation.Location, bool, error) {
	defer s.track("jump_declaration")()

	abs, ok := s.javaFile(path)
	if !ok {
		return navigation.Location{}, false, nil
	}
	loc, found, err := s.nav.SearchDeclaration(ctx, abs, line, column, symbol)
	if err != nil || !found {
		return navigation.Location{}, false, err
	}
	s.history.Push(navigation.Location{Path: path, Line: line, Column: column})
	return loc, true, nil
}

// BackDeclaration pops the most recent jump origin.
func (s *Session) BackDeclaration() (navigation.Location, bool) {
	defer s.track("back_declaration")()
	return s.history.Pop()
}
