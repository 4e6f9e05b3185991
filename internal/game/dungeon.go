package game

import (
	"math/rand"

	"github.com/google/uuid"
)

var itemTypes = []string{"health_potion", "sword", "shield", "armor", "key"}

// GenerateDungeon 生成地牢，四周为墙，内部按 wallDensity 概率随机落墙
func GenerateDungeon(width, height int, wallDensity float64) *Dungeon {
	tiles := make([][]int, height)
	for y := 0; y < height; y++ {
		tiles[y] = make([]int, width)
		for x := 0; x < width; x++ {
			if x == 0 || x == width-1 || y == 0 || y == height-1 {
				tiles[y][x] = 1
			} else if rand.Float64() < wallDensity {
				tiles[y][x] = 1
			}
		}
	}

	return &Dungeon{
		Width:  width,
		Height: height,
		Tiles:  tiles,
		Rooms:  make([]Room, 0),
	}
}

// SpawnEnemies 生成敌人，位置落在 [5, 45) 区间内
func SpawnEnemies(count int) []*Enemy {
	enemies := make([]*Enemy, 0, count)
	for i := 0; i < count; i++ {
		enemies = append(enemies, &Enemy{
			ID:   uuid.New().String(),
			Type: "goblin",
			Position: Position{
				X: rand.Intn(40) + 5,
				Y: rand.Intn(40) + 5,
			},
			Health:    50,
			MaxHealth: 50,
			Damage:    10,
		})
	}
	return enemies
}

// SpawnItems 生成地面道具
func SpawnItems(count int) []*Item {
	items := make([]*Item, 0, count)
	for i := 0; i < count; i++ {
		items = append(items, &Item{
			ID:   uuid.New().String(),
			Type: itemTypes[rand.Intn(len(itemTypes))],
			Position: Position{
				X: rand.Intn(40) + 5,
				Y: rand.Intn(40) + 5,
			},
		})
	}
	return items
}
