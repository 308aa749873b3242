package store

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/cupoftea4/pos-mysql/internal/apperr"
	"github.com/cupoftea4/pos-mysql/internal/model"
)

func (pdb *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	const op = "store.GetUserByEmail"
	var u model.User
	var role string
	b := pdb.sb.Select("id", "email", "password", "role").From("users").Where(sq.Eq{"email": email})
	if err := queryRow(ctx, pdb.db, b, &u.UserID, &u.Email, &u.Password, &role); err != nil {
		if isNoRows(err) {
			return model.User{}, notFound(op, "User not found")
		}
		return model.User{}, classify(op, err)
	}
	u.Role = model.Role(role)
	return u, nil
}

// CreateUser inserts u and fills in its id. A taken email is a Conflict.
func (pdb *Store) CreateUser(ctx context.Context, u *model.User) error {
	const op = "store.CreateUser"
	b := pdb.sb.Insert("users").Columns("email", "password", "role").Values(u.Email, u.Password, string(u.Role))
	id, err := pdb.dialect.insertID(ctx, pdb.db, b)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.WrapKind(op, apperr.Conflict, "User already exists", err)
		}
		return classify(op, err)
	}
	u.UserID = id
	return nil
}
